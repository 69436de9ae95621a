package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrAmountNotNumeric = errors.New("amount is not a number")
	ErrAmountNegative   = errors.New("amount is negative")
)

// ParseAmount converts an operator-typed amount to a float64. An empty string is 0.
// NaN and infinities count as non-numeric.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrAmountNotNumeric
	}
	if value < 0 {
		return 0, ErrAmountNegative
	}

	return value, nil
}
