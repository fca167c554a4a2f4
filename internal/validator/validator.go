package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// trans is the singleton English translator for validation errors.
	trans     ut.Translator
	setupOnce sync.Once
)

// Setup registers English translations and JSON field names on Gin's
// binding engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		// Errors name fields the way clients send them.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		// Quiz windows compare dates, not numbers.
		_ = v.RegisterTranslation("gtefield", trans,
			func(t ut.Translator) error {
				return t.Add("gtefield", "{0} must not be before {1}", true)
			},
			func(t ut.Translator, fe govalidator.FieldError) string {
				msg, _ := t.T("gtefield", fe.Field(), lowerFirst(fe.Param()))
				return msg
			},
		)
		_ = v.RegisterTranslation("unique", trans,
			func(t ut.Translator) error {
				return t.Add("unique", "{0} must not repeat a value", true)
			},
			func(t ut.Translator, fe govalidator.FieldError) string {
				msg, _ := t.T("unique", fe.Field())
				return msg
			},
		)
	})
}

// TranslateErrors maps a binding or validation error to field path →
// message. Anything else is reported under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fieldPath(fe)] = fe.Translate(trans)
			} else {
				fields[fieldPath(fe)] = fe.Error()
			}
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Struct validates v against its binding tags outside of a request, using
// the same engine and tag names as Bind.
func Struct(v interface{}) error {
	return binding.Validator.ValidateStruct(v)
}

// fieldPath returns the field's namespace without the root struct name, so
// nested errors read "questions[2].prompt" rather than "prompt".
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
