package auth

import (
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
)

// MinPasswordLength is the floor of the password policy.
var MinPasswordLength = 10

// ValidatePassword applies the account password policy: required, minimum
// length, and at least one letter and one digit. Policy rejections are
// user-correctable validation errors.
func ValidatePassword(password string) error {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(MinPasswordLength, 100),
		validation.By(requireLetterAndDigit),
	)

	if err != nil {
		return errors.Wrap(err, ErrPasswordPolicy.Category, ErrPasswordPolicy.Message).
			WithTextCode(ErrPasswordPolicy.TextCode).
			WithMetadata(map[string]any{"policy": err.Error()})
	}

	return nil
}

func requireLetterAndDigit(value any) error {
	s, _ := value.(string)

	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return validation.NewError("validation_password_complexity", "must contain at least one letter and one digit")
	}

	return nil
}
