package auth

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Username and password policy. Usernames are case-normalized to lowercase
// before storage; the pattern is checked against the raw input.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 31
	MinPasswordLength = 6
	MaxPasswordLength = 255
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validate is the shared validator instance. Request structs declare their
// constraints with struct tags; ValidateStruct turns violations into a
// per-field error map so handlers never inspect raw form values.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names from json tags so error details match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		username := fl.Field().String()
		return len(username) >= MinUsernameLength &&
			len(username) <= MaxUsernameLength &&
			usernamePattern.MatchString(username)
	})

	return v
}

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

// LoginRequest is the payload for cookie login
type LoginRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

// ChangePasswordRequest is the payload for an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=6,max=255"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=255"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UpdateProfileRequest is the payload for profile updates
type UpdateProfileRequest struct {
	Age *int    `json:"age" validate:"omitempty,gte=0,lte=150"`
	Bio *string `json:"bio" validate:"omitempty,max=2000"`
}

// ForgotPasswordRequest asks for a password reset token to be issued
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required,username"`
}

// ResetPasswordRequest completes a password reset with a valid token
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6,max=255"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// CreateAPITokenRequest is the payload for issuing a new API token
type CreateAPITokenRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// RevokeAPITokenRequest identifies the API token to revoke
type RevokeAPITokenRequest struct {
	TokenID string `json:"token_id" validate:"required"`
}

// RevokeSessionRequest identifies the session to revoke
type RevokeSessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// DeleteAccountRequest requires the confirmation phrase to be typed out
type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation" validate:"required,eq=DELETE"`
}

// ValidateStruct checks a request struct against its tags. It returns nil
// when the input is valid, otherwise a field → messages map suitable for the
// error response details. Validation failures are input problems, not
// security events, and are never logged as such.
func ValidateStruct(req any) map[string][]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"request": {"Invalid request body"}}
	}

	details := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = append(details[fe.Field()], fieldMessage(fe))
	}
	return details
}

// fieldMessage renders a human-readable message for a single violation
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "username":
		return "Username must be 3-31 characters of letters, digits, underscores or hyphens"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte", "lte":
		return "Value is out of range"
	case "eqfield":
		return "Passwords do not match"
	case "eq":
		return "Incorrect confirmation"
	default:
		return "Invalid value"
	}
}
