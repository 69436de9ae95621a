// utils/valid.go
package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/HSouheill/leadbridge_admin/models"
)

var (
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrInvalidMobile = errors.New("invalid mobile number")
)

var (
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneChars = regexp.MustCompile(`[^\d+]`)
)

// SanitizeInput trims operator text, drops control characters and strips markup.
func SanitizeInput(input string) string {
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	input = tagRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(input)
}

// SanitizeEmail lowercases and validates an email address. Empty stays empty.
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if !emailRegex.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SanitizeMobile keeps digits and a leading +. Indian numbers are stored without country code,
// so no prefix is added.
func SanitizeMobile(mobile string) (string, error) {
	if strings.TrimSpace(mobile) == "" {
		return "", nil
	}
	mobile = phoneChars.ReplaceAllString(mobile, "")
	if strings.LastIndex(mobile, "+") > 0 {
		return "", ErrInvalidMobile
	}
	digits := strings.TrimPrefix(mobile, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidMobile
	}
	return mobile, nil
}

// SanitizeCustomer cleans the customer details of a lead edit in place.
func SanitizeCustomer(d *models.CustomerDetails) error {
	d.FullName = SanitizeInput(d.FullName)
	d.Address = SanitizeInput(d.Address)
	d.City = SanitizeInput(d.City)
	d.Pincode = SanitizeInput(d.Pincode)
	d.PAN = strings.ToUpper(SanitizeInput(d.PAN))
	d.Employment = SanitizeInput(d.Employment)
	d.CompanyName = SanitizeInput(d.CompanyName)

	email, err := SanitizeEmail(d.Email)
	if err != nil {
		return err
	}
	d.Email = email

	mobile, err := SanitizeMobile(d.Mobile)
	if err != nil {
		return err
	}
	d.Mobile = mobile
	return nil
}

// SanitizeUserUpdate cleans the editable agent profile fields in place.
func SanitizeUserUpdate(upd *models.UserUpdate) error {
	if upd.FullName != nil {
		name := SanitizeInput(*upd.FullName)
		upd.FullName = &name
	}
	if upd.Email != nil {
		email, err := SanitizeEmail(*upd.Email)
		if err != nil {
			return err
		}
		upd.Email = &email
	}
	if upd.Mobile != nil {
		mobile, err := SanitizeMobile(*upd.Mobile)
		if err != nil {
			return err
		}
		upd.Mobile = &mobile
	}
	if upd.Bank != nil {
		upd.Bank.BankName = SanitizeInput(upd.Bank.BankName)
		upd.Bank.AccountNumber = SanitizeInput(upd.Bank.AccountNumber)
		upd.Bank.IFSCCode = strings.ToUpper(SanitizeInput(upd.Bank.IFSCCode))
		upd.Bank.PAN = strings.ToUpper(SanitizeInput(upd.Bank.PAN))
	}
	return nil
}
