package serverutils

import (
	"errors"
	"reflect"
	"strings"

	"visuallm-be/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json/query names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ValidateRequest checks the validate tags of req. Failures are InvalidRequest
// errors naming the first offending field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.New(apperr.ErrInvalidRequest, fe.Field(), "failed on the '%s' rule", fe.Tag())
	}
	return apperr.New(apperr.ErrInvalidRequest, "", "%v", err)
}
