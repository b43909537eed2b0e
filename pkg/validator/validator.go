// Package validator validates request payloads with go-playground/validator.
// Field names in errors come from json tags and messages are available in
// English and Chinese. Domain rules cover permission strings, role names and
// passwords.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/kart-io/sentinel-iam/pkg/errors"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator checks request structs and single values. It is safe for
// concurrent use once built.
type Validator struct {
	validate *validator.Validate
	trans    map[string]ut.Translator
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the process wide validator, built on first use.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New builds a Validator with the domain rules and both translations.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		trans:    make(map[string]ut.Translator, 2),
	}
	v.validate.RegisterTagNameFunc(fieldName)

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// fieldName names a struct field by its json tag, then its form tag.
func fieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Struct validates s and returns the failures translated into lang, or nil.
func (v *Validator) Struct(s interface{}, lang string) *ValidationErrors {
	return v.translate(v.validate.Struct(s), lang)
}

// Var validates a single value named name against tag and returns the
// failures translated into lang, or nil.
func (v *Validator) Var(field interface{}, name, tag, lang string) *ValidationErrors {
	return v.translate(v.validate.VarWithKey(name, field, tag), lang)
}

// Check validates s and converts a failure into an ErrInvalidParam carrying
// both the English and the Chinese messages.
func (v *Validator) Check(s interface{}) error {
	return v.asErrno(v.validate.Struct(s))
}

// CheckVar is Check for a single value named name.
func (v *Validator) CheckVar(field interface{}, name, tag string) error {
	return v.asErrno(v.validate.VarWithKey(name, field, tag))
}

func (v *Validator) asErrno(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(validator.ValidationErrors); !ok {
		return errors.ErrInvalidParam.WithCause(err)
	}
	return errors.ErrInvalidParam.WithMessages(
		v.translate(err, LangEN).Error(),
		v.translate(err, LangZH).Error(),
	)
}

// translator picks the translator for lang. Accept-Language style values
// such as "zh-CN,zh;q=0.9" select Chinese; anything else English.
func (v *Validator) translator(lang string) ut.Translator {
	if strings.HasPrefix(strings.ToLower(lang), LangZH) {
		return v.trans[LangZH]
	}
	return v.trans[LangEN]
}

func (v *Validator) translate(err error, lang string) *ValidationErrors {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{Errors: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	trans := v.translator(lang)
	out := &ValidationErrors{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Param:   fe.Param(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// Check validates s with the global validator.
func Check(s interface{}) error {
	return Global().Check(s)
}

// CheckVar validates a single value with the global validator.
func CheckVar(field interface{}, name, tag string) error {
	return Global().CheckVar(field, name, tag)
}
