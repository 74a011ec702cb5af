package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ValidateCustomer checks the customer form.
func (r *Request) ValidateCustomer() error {
	return toValidationError("please check your contact details", "customer", validate.Struct(r.Customer))
}

// ValidateDelivery checks the delivery selection and the payment method.
func (r *Request) ValidateDelivery() error {
	if err := validate.Struct(r.Delivery); err != nil {
		return toValidationError("please choose a delivery option", "delivery", err)
	}

	return toValidationError("invalid order", "", validate.Struct(r))
}

func toValidationError(message, prefix string, err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: message, Fields: map[string]string{prefix: err.Error()}}
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(prefix, fe)] = describe(fe)
	}

	return &ValidationError{Message: message, Fields: fields}
}

// fieldPath strips the root struct name from the namespace, "CustomerForm.phone" -> "customer.phone".
func fieldPath(prefix string, fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if prefix == "" {
		return ns
	}

	return prefix + "." + ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}
