package utils

import (
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds enforced by the strength policy.
const (
	PasswordMinLen = 8
	PasswordMaxLen = 16
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// StrongPassword reports whether p is 8 to 16 characters long and contains at
// least one upper-case letter, lower-case letter, digit and symbol.  A symbol
// is any rune that is not a letter, digit or white space.
func StrongPassword(p string) bool {
	n := utf8.RuneCountInString(p)
	if n < PasswordMinLen || n > PasswordMaxLen {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
		case !unicode.IsLetter(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// RegisterPasswordRule installs StrongPassword under the "strongpassword" tag.
func RegisterPasswordRule(v *validator.Validate) error {
	return v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
}
