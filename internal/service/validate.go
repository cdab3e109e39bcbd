package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/models"
)

// newValidator reports struct-tag failures under each field's JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collectStruct runs the struct tags on req and records every failure in ve.
func collectStruct(v *validator.Validate, req any, ve *errs.ValidationError) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		ve.Add(fe.Field(), tagMessage(fe))
	}
	return nil
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

const minPhoneDigits = 10

// checkPhone counts only the digits of phone; the caller stores the original string.
func checkPhone(phone string, ve *errs.ValidationError) {
	if phone == "" {
		return
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits {
		ve.Add("phone", fmt.Sprintf("phone number must contain at least %d digits", minPhoneDigits))
	}
}

// parseBirthDate returns nil for an empty input.
func parseBirthDate(raw string, ve *errs.ValidationError) *models.Date {
	if raw == "" {
		return nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		ve.Add("birth_date", "enter a valid date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

func checkWebsite(website string, ve *errs.ValidationError) {
	if website == "" {
		return
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		ve.Add("website", "enter a valid URL")
	}
}

func validUsername(username string) bool {
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return username != ""
}
