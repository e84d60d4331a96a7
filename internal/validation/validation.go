// Package validation validates request models with validator/v10 struct tags
// and reports failures by their JSON field names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrInvalidBody = errors.New("invalid request body")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", f.Field, f.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Field, f.Param)
	default:
		return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
}

// Error lists every failed field. It matches ErrValidation under errors.Is.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Normalizer is implemented by request models that clean their fields,
// for example trimming whitespace, before the validation rules run.
type Normalizer interface {
	Normalize()
}

// ParseAndValidate decodes the JSON body into dto, normalizes it when it
// implements Normalizer and validates it.
func ParseAndValidate(c *fiber.Ctx, dto interface{}) error {
	if err := c.BodyParser(dto); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if n, ok := dto.(Normalizer); ok {
		n.Normalize()
	}
	return Struct(dto)
}
