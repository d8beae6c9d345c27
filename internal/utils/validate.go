package utils

import (
	"errors"
	"strings"
)

// Validation errors returned by the intake helpers.  Handlers surface the
// message to the client as is.
var (
	ErrPhoneFormat     = errors.New("phone must be exactly 11 digits")
	ErrBirthDateFormat = errors.New("birth date must be YYMMDD")
	ErrBirthDateValue  = errors.New("birth date is not a real date")
	ErrNameRequired    = errors.New("name is required")
	ErrNameTooLong     = errors.New("name is too long")
	ErrMessageRequired = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message is too long")
)

// MaxNameLength bounds user_name and companion_name (in runes).
const MaxNameLength = 50

// NormalizePhone trims raw and checks it is exactly 11 digits.  Hyphenated
// input is rejected rather than repaired.
func NormalizePhone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if len(p) != 11 || !allDigits(p) {
		return "", ErrPhoneFormat
	}
	return p, nil
}

// ValidateBirthDate checks a YYMMDD string, leap years included.  Two-digit
// years 00-25 are read as 20xx, the rest as 19xx.
func ValidateBirthDate(s string) error {
	if len(s) != 6 || !allDigits(s) {
		return ErrBirthDateFormat
	}
	yy := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[2]-'0')*10 + int(s[3]-'0')
	dd := int(s[4]-'0')*10 + int(s[5]-'0')
	year := 1900 + yy
	if yy <= 25 {
		year = 2000 + yy
	}
	if mm < 1 || mm > 12 || dd < 1 || dd > daysIn(year, mm) {
		return ErrBirthDateValue
	}
	return nil
}

// ValidateName trims name and checks it is non-empty and short enough.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len([]rune(name)) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// MaxMessageLength bounds inquiry and story bodies (in runes).
const MaxMessageLength = 5000

// ValidateMessage trims a free-text body and checks its length.
func ValidateMessage(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrMessageRequired
	}
	if len([]rune(body)) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return body, nil
}

// DigitsOnly drops everything but ASCII digits, for forms that accept
// "010-1234-5678".
func DigitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
