package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedProduct is returned when a product reconstructed from external
// input has missing, unknown or non-string fields.
var ErrMalformedProduct = errors.New("product: malformed product")

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// wireProduct uses pointers so that an absent field can be told apart from
// an empty string: required only rejects nil pointers.
type wireProduct struct {
	Name         *string `json:"name" validate:"required"`
	Manufacturer *string `json:"manufacturer" validate:"required"`
	SerialNumber *string `json:"serial_number" validate:"required"`
}

// Parse decodes a single JSON object with exactly the keys name,
// manufacturer and serial_number, all strings. Any other shape fails with an
// error wrapping ErrMalformedProduct.
func Parse(data []byte) (Product, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireProduct
	if err := dec.Decode(&w); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrMalformedProduct, err)
	}
	if dec.More() {
		return Product{}, fmt.Errorf("%w: trailing data after object", ErrMalformedProduct)
	}
	if err := validate.Struct(&w); err != nil {
		return Product{}, fmt.Errorf("%w: %s", ErrMalformedProduct, describe(err))
	}
	return New(*w.Name, *w.Manufacturer, *w.SerialNumber), nil
}

// FromMap is Parse for input that has already been decoded into a map.
func FromMap(m map[string]any) (Product, error) {
	if m == nil {
		return Product{}, fmt.Errorf("%w: nil map", ErrMalformedProduct)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrMalformedProduct, err)
	}
	return Parse(data)
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	missing := make([]string, 0, len(ve))
	for _, fe := range ve {
		missing = append(missing, fe.Field())
	}
	return "missing " + strings.Join(missing, ", ")
}
