package snap

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	amountPattern   = regexp.MustCompile(`^\d+\.\d{2}$`)
	refNoPattern    = regexp.MustCompile(`^[A-Za-z0-9\-_.]{1,64}$`)
	validate        = newValidator()
)

// Validate checks the order payload before it is fingerprinted and signed.
func (r CreateOrderRequest) Validate() error { return validateStruct(r) }

// Validate checks the query payload.
func (r QueryPaymentRequest) Validate() error { return validateStruct(r) }

// Validate checks the cancellation payload.
func (r CancelOrderRequest) Validate() error { return validateStruct(r) }

// Validate checks the refund payload.
func (r RefundOrderRequest) Validate() error { return validateStruct(r) }

// Validate checks the token-exchange payload.
func (r ApplyTokenRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.GrantType == "AUTHORIZATION_CODE" && r.AuthCode == "" {
		return NewInvalidFormatError("authCode is required", WithOffendingParam("authCode"))
	}
	return nil
}

// Validate checks the OTT payload.
func (r ApplyOTTRequest) Validate() error { return validateStruct(r) }

// Validate checks the balance-inquiry payload.
func (r BalanceInquiryRequest) Validate() error { return validateStruct(r) }

// Validate checks the unbinding payload.
func (r AccountUnbindRequest) Validate() error { return validateStruct(r) }

// Validate checks the widget payment payload.
func (r WidgetPayRequest) Validate() error { return validateStruct(r) }

// Validate checks the consult-pay payload.
func (r ConsultPayRequest) Validate() error { return validateStruct(r) }

// Validate checks the bank transfer payload.
func (r TransferToBankRequest) Validate() error { return validateStruct(r) }

// Validate checks the wallet top-up payload.
func (r TopUpRequest) Validate() error { return validateStruct(r) }

// Validate checks the transfer status payload.
func (r TransferStatusRequest) Validate() error { return validateStruct(r) }

// Validate checks the wallet account inquiry payload.
func (r AccountInquiryRequest) Validate() error { return validateStruct(r) }

// Validate checks the bank account inquiry payload.
func (r BankAccountInquiryRequest) Validate() error { return validateStruct(r) }

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return normalizeValidationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return currencyPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	if err := v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return amountPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	if err := v.RegisterValidation("refno", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return refNoPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	return v
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	first := validationErrs[0]
	fieldPath := jsonPath(first)
	return NewInvalidFormatError(fmt.Sprintf("%s %s", fieldPath, validationMessage(first)), WithOffendingParam(fieldPath))
}

func jsonPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return fe.Field()
	}
	return path
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "must be a valid URL"
	case "currency":
		return "must be an uppercase 3-letter ISO-4217 code"
	case "amount":
		return "must be a decimal with exactly two fraction digits"
	case "refno":
		return "must be 1-64 characters of letters, digits, '-', '_' or '.'"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
