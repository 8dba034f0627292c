// Package validation builds the request validator shared by the services.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const (
	notBlankTag         = "notblank"
	attendanceStatusTag = "attendance_status"
	staffRoleTag        = "staff_role"
)

var translator ut.Translator

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
}

// New returns a validator that reports JSON field names, renders English
// messages and knows the custom tags used by request structs.
func New() *validator.Validate {
	v := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(attendanceStatusTag, func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(staffRoleTag, func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).StaffRole()
	})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, attendanceStatusTag, staffRoleTag} {
		_ = v.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
	return v
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case attendanceStatusTag:
		return fe.Field() + " must be present or absent"
	case staffRoleTag:
		return fe.Field() + " must be admin or teacher"
	default:
		return fe.Error()
	}
}

// Message renders validation failures as one readable sentence. Errors that
// are not field errors fall back to their own text.
func Message(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Translate(translator))
	}
	return strings.Join(parts, "; ")
}
