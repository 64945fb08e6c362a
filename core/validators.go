package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	cedulaTag   = "cedula"
	cedulaText  = "must be a 10-digit cedula number"
	cedulaRegex = regexp.MustCompile(`^\d{10}$`)

	shiftTag  = "shift"
	shiftText = "must be one of: Matutina, Vespertina"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator instantiates the app validator and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(cedulaTag, cedulaValidation)
	RegisterCustomTranslation(validate, translator, cedulaTag, cedulaText)

	_ = validate.RegisterValidation(shiftTag, shiftValidation)
	RegisterCustomTranslation(validate, translator, shiftTag, shiftText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)

	return validate, translator
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// cedulaValidation only allows 10-digit national id numbers.
func cedulaValidation(fl validator.FieldLevel) bool {
	return cedulaRegex.MatchString(fl.Field().String())
}

// shiftValidation only allows the known school shifts.
func shiftValidation(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "matutina", "vespertina":
		return true
	}
	return false
}
