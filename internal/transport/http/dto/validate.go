package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

var (
	validate, trans = newValidator()
)

func newValidator() (*validator.Validate, ut.Translator) {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names, not Go ones
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	tr, _ := ut.New(locale, locale).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, tr); err != nil {
		panic(err)
	}
	return v, tr
}

// Validate checks the struct tags of a request and maps the first failure to
// a domain validation error. The English rendering of the failure is kept in
// meta["detail"].
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidField("body", "invalid")
	}

	fe := verrs[0]
	return withDetail(mapFieldError(fe), fe.Translate(trans))
}

func mapFieldError(fe validator.FieldError) *domain.Error {
	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(fe.Field())
	case "email":
		return domain.ErrInvalidField(fe.Field(), "malformed")
	case "min", "max", "len":
		if strings.Contains(fe.Field(), "password") {
			return domain.ErrWeakPassword(fe.Tag() + " length " + fe.Param())
		}
		return domain.ErrInvalidField(fe.Field(), fe.Tag()+" length "+fe.Param())
	case "numeric":
		return domain.ErrInvalidField(fe.Field(), "must be numeric")
	default:
		return domain.ErrInvalidField(fe.Field(), fe.Tag())
	}
}

func withDetail(err *domain.Error, detail string) *domain.Error {
	if detail == "" {
		return err
	}
	return domain.WithMeta(err, map[string]string{"detail": detail})
}
