package service

import (
	"errors"
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"

	"evera/internal/account/models"
	dErrors "evera/pkg/domain-errors"
)

const minPasswordLength = 8

// Field validation messages, shown inline next to the offending input.
const (
	msgEmailRequired     = "Email is required"
	msgEmailInvalid      = "Invalid email address"
	msgPasswordRequired  = "Password is required"
	msgPasswordTooShort  = "Password must be at least 8 characters"
	msgPasswordPattern   = "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	msgConfirmRequired   = "Please confirm your password"
	msgPasswordsMismatch = "Passwords do not match"
	msgFirstNameRequired = "First name is required"
	msgLastNameRequired  = "Last name is required"
	msgPlanRequired      = "Please select a plan"
	msgTokenMissing      = "No token found"
	msgUserIDRequired    = "User id is required"
)

// FieldErrors flattens a validation failure to field → message, keeping the
// first message per field.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	collectFieldErrors(err, out)
	return out
}

func collectFieldErrors(err error, out map[string]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFieldErrors(e, out)
		}
		return
	}
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code == dErrors.CodeValidation && de.Field != "" {
		if _, seen := out[de.Field]; !seen {
			out[de.Field] = de.Message
		}
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return dErrors.Field("email", msgEmailRequired)
	}
	if !govalidator.IsEmail(email) {
		return dErrors.Field("email", msgEmailInvalid)
	}
	return nil
}

func validateSignIn(req models.SignInRequest) error {
	var errs []error
	if err := validateEmail(req.Email); err != nil {
		errs = append(errs, err)
	}
	if req.Password == "" {
		errs = append(errs, dErrors.Field("password", msgPasswordRequired))
	}
	return errors.Join(errs...)
}

func validateSignUp(req models.SignUpRequest) error {
	var errs []error
	if strings.TrimSpace(req.FirstName) == "" {
		errs = append(errs, dErrors.Field("firstName", msgFirstNameRequired))
	}
	if strings.TrimSpace(req.LastName) == "" {
		errs = append(errs, dErrors.Field("lastName", msgLastNameRequired))
	}
	if err := validateEmail(req.Email); err != nil {
		errs = append(errs, err)
	}
	if req.Password == "" {
		errs = append(errs, dErrors.Field("password", msgPasswordRequired))
	}
	if err := validateConfirmation(req.Password, req.ConfirmPassword); err != nil {
		errs = append(errs, err)
	}
	if _, ok := models.ParsePlan(string(req.Plan)); !ok {
		errs = append(errs, dErrors.Field("plan", msgPlanRequired))
	}
	return errors.Join(errs...)
}

func validateResetPassword(token string, req models.ResetPasswordRequest) error {
	var errs []error
	if strings.TrimSpace(token) == "" {
		errs = append(errs, dErrors.Field("token", msgTokenMissing))
	}
	if err := validateNewPassword(req.Password); err != nil {
		errs = append(errs, err)
	}
	if err := validateConfirmation(req.Password, req.ConfirmPassword); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateNewPassword applies the strength rule used when choosing a new
// password: length, plus upper, lower and digit.
func validateNewPassword(password string) error {
	if password == "" {
		return dErrors.Field("password", msgPasswordRequired)
	}
	if len([]rune(password)) < minPasswordLength {
		return dErrors.Field("password", msgPasswordTooShort)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return dErrors.Field("password", msgPasswordPattern)
	}
	return nil
}

func validateConfirmation(password, confirm string) error {
	if confirm == "" {
		return dErrors.Field("confirmPassword", msgConfirmRequired)
	}
	if confirm != password {
		return dErrors.Field("confirmPassword", msgPasswordsMismatch)
	}
	return nil
}
