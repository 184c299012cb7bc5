// Package validation wraps go-playground/validator so field errors are
// reported under their JSON names.
package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"admissions_backend/internals/helpers/apperr"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return v
}

// Struct validates s and returns a VALIDATION_ERROR *apperr.Error on failure.
func Struct(s any) error {
	if err := instance().Struct(s); err != nil {
		return apperr.FromValidator(err)
	}
	return nil
}
