// pkg/validator/validator.go
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	dv "github.com/sblackstone/shopspring-decimal-validators"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns a singleton validator instance with all custom rules registered
func GetValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New()

		// Register shopspring decimal validations
		dv.RegisterDecimalValidators(v)

		// report json field names so errors match the request bodies
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		validate = v
	})
	return validate
}
