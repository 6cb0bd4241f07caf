package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type contactStep struct {
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,simple_email"`
}

type shippingStep struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	City            string `json:"city" validate:"required"`
	State           string `json:"state" validate:"required"`
	ZipCode         string `json:"zip_code" validate:"required"`
}

type paymentStep struct {
	CardNumber     string `json:"card_number" validate:"required"`
	ExpiryDate     string `json:"expiry_date" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
	CardholderName string `json:"cardholder_name" validate:"required"`
}

var requiredMessages = map[string]string{
	"customer_name":    "Name is required",
	"customer_email":   "Email is required",
	"shipping_address": "Address is required",
	"city":             "City is required",
	"state":            "State is required",
	"zip_code":         "ZIP code is required",
	"card_number":      "Card number is required",
	"expiry_date":      "Expiry date is required",
	"cvv":              "CVV is required",
	"cardholder_name":  "Cardholder name is required",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

func stepInput(step Step, f Form) any {
	t := strings.TrimSpace
	switch step {
	case StepContact:
		return contactStep{CustomerName: t(f.CustomerName), CustomerEmail: t(f.CustomerEmail)}
	case StepShipping:
		return shippingStep{ShippingAddress: t(f.ShippingAddress), City: t(f.City), State: t(f.State), ZipCode: t(f.ZipCode)}
	default:
		return paymentStep{CardNumber: t(f.CardNumber), ExpiryDate: t(f.ExpiryDate), CVV: t(f.CVV), CardholderName: t(f.CardholderName)}
	}
}

// validateStep checks the fields belonging to step and returns a message per
// failing field. An empty map means the step may advance.
func validateStep(step Step, f Form) map[string]string {
	out := make(map[string]string)

	err := validate.Struct(stepInput(step, f))
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if msg, ok := requiredMessages[fe.Field()]; ok {
			return msg
		}
		return "This field is required"
	case "simple_email":
		return "Invalid email format"
	default:
		return "Invalid value"
	}
}
