package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// DefaultQRSize is the edge length in pixels of a referral QR code.
const DefaultQRSize = 256

// ReferralLink is the signup link an agent shares; uniqueID is the agent's referral code.
func ReferralLink(base, uniqueID string) (string, error) {
	if uniqueID == "" {
		return "", errors.New("agent has no referral code")
	}
	return base + uniqueID, nil
}

// ReferralQRCode encodes content as a square PNG QR code.
func ReferralQRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("encode QR PNG: %w", err)
	}
	return buf.Bytes(), nil
}
