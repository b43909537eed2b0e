package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func (v *Validator) registerCustomTranslations() {
	for tag, message := range map[string]string{
		TagPermission:   "{0} must be in the form resource:action",
		TagRoleName:     "{0} must be a role name of at most 64 characters",
		TagPassword:     "{0} must be at least 8 characters and contain at least one letter and one number",
		TagNoWhitespace: "{0} must not contain whitespace characters",
		TagTrimmed:      "{0} must not have leading or trailing spaces",
	} {
		registerTranslation(v.validate, v.trans[LangEN], tag, message)
	}

	for tag, message := range map[string]string{
		TagPermission:   "{0}必须是 resource:action 格式",
		TagRoleName:     "{0}必须是不超过64个字符的角色名",
		TagPassword:     "{0}必须至少8个字符，且包含至少一个字母和一个数字",
		TagNoWhitespace: "{0}不能包含空白字符",
		TagTrimmed:      "{0}不能有前导或尾随空格",
	} {
		registerTranslation(v.validate, v.trans[LangZH], tag, message)
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
