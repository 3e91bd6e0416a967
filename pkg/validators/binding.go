package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BindingMessage turns a gin binding error into something a client can act
// on. Only the first failing field is reported.
func BindingMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Invalid request body"
	}

	fe := ve[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", field)
	case "max":
		return fmt.Sprintf("Field %s is too long", field)
	case "carnet":
		return ErrCarnetInvalid.Error()
	case "phone":
		return ErrPhoneInvalid.Error()
	case "email":
		return ErrEmailInvalid.Error()
	case "oneof":
		return fmt.Sprintf("Field %s must be one of: %s", field, fe.Param())
	}

	return fmt.Sprintf("Field %s is invalid", field)
}
