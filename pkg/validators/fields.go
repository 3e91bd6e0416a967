package validators

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	carnetRe = regexp.MustCompile(`^[A-Za-z0-9-]{3,20}$`)
	phoneRe  = regexp.MustCompile(`^[0-9]{10}$`)

	registerOnce sync.Once
)

var (
	ErrCarnetInvalid = errors.New("carnet number must be 3-20 letters, digits or dashes")
	ErrPhoneInvalid  = errors.New("phone number must have 10 digits")
)

// NormalizeCarnet trims and upper-cases a claimed carnet number
func NormalizeCarnet(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

// NormalizePhone drops the whitespace people type between digit groups
func NormalizePhone(p string) string {
	return strings.Join(strings.Fields(p), "")
}

func CarnetValidator(n string) error {
	if !carnetRe.MatchString(NormalizeCarnet(n)) {
		return ErrCarnetInvalid
	}

	return nil
}

func PhoneValidator(p string) error {
	if !phoneRe.MatchString(NormalizePhone(p)) {
		return ErrPhoneInvalid
	}

	return nil
}

// RegisterBindings adds the "carnet" and "phone" tags to gin's validator so
// request structs can use them in binding tags. Errors name fields by their
// JSON key.
func RegisterBindings() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		v.RegisterValidation("carnet", func(fl validator.FieldLevel) bool {
			return CarnetValidator(fl.Field().String()) == nil
		})
		v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return PhoneValidator(fl.Field().String()) == nil
		})
	})
}
