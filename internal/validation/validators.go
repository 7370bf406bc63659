package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	NotBlankTag    = "notblank"
	PositiveIntTag = "positive_int"
	DecimalTag     = "decimal_str"
	DigitsTag      = "digits"
	ExpiryTag      = "mmyy"

	positiveIntPattern = regexp.MustCompile(`^\d+$`)
	decimalPattern     = regexp.MustCompile(`^\d*\.?\d*$`)
	digitsPattern      = regexp.MustCompile(`^\d+$`)
	expiryPattern      = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(NotBlankTag, notBlankValidation)
	_ = Validate.RegisterValidation(PositiveIntTag, positiveIntValidation)
	_ = Validate.RegisterValidation(DecimalTag, patternValidation(decimalPattern))
	_ = Validate.RegisterValidation(DigitsTag, patternValidation(digitsPattern))
	_ = Validate.RegisterValidation(ExpiryTag, patternValidation(expiryPattern))

	registerCustomValidationsTranslations(NotBlankTag, PositiveIntTag, DecimalTag, DigitsTag, ExpiryTag)
}

// registerCustomValidationsTranslations registers messages for the custom tags. The
// english defaults are already registered so a noop registration func is passed.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case NotBlankTag:
		return fmt.Sprintf("%s is required", fe.Field())
	case PositiveIntTag:
		return "You must enter a positive integer (e.g. 1, 10)."
	case DecimalTag:
		return "Cost must be a number (e.g., 99 or 99.99)."
	case DigitsTag:
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	case ExpiryTag:
		return "Expiry date must be in MM/YY format"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// positiveIntValidation accepts whole numbers of at least one.
func positiveIntValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok || !positiveIntPattern.MatchString(str) {
		return false
	}
	n, err := strconv.Atoi(str)
	return err == nil && n >= 1
}

func patternValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		return ok && re.MatchString(str)
	}
}

// IsPositiveInt reports whether s is a whole number of at least one.
func IsPositiveInt(s string) bool {
	return Validate.Var(s, PositiveIntTag) == nil
}

// IsDecimal reports whether s is digits with at most one decimal point.
func IsDecimal(s string) bool {
	return decimalPattern.MatchString(s)
}

// FieldErrors maps a json field name to a user facing message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Messages overrides the translated message for "field.tag" or "field" keys.
type Messages map[string]string

// Struct validates v and returns nil or FieldErrors keyed by json field name.
func Struct(v any, overrides Messages) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !asValidationErrors(err, &ves) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range ves {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := overrides[field+"."+fe.Tag()]; ok {
			out[field] = msg
		} else if msg, ok := overrides[field]; ok {
			out[field] = msg
		} else {
			out[field] = fe.Translate(Translator)
		}
	}
	return out
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ves, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ves
	}
	return ok
}

// Error is a rejected form: one summary message plus the per-field detail.
type Error struct {
	Message string
	Fields  FieldErrors
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + " (" + e.Fields.Error() + ")"
}

// Form validates v and wraps any field errors under message.
func Form(v any, message string, overrides Messages) error {
	err := Struct(v, overrides)
	if err == nil {
		return nil
	}
	fields, ok := err.(FieldErrors)
	if !ok {
		return err
	}
	return &Error{Message: message, Fields: fields}
}
