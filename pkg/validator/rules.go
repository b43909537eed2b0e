package validator

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/authz"
)

// Custom validation tags
const (
	TagPermission   = "permission"   // "resource:action" with both parts non-empty
	TagRoleName     = "rolename"     // role name that stays non-empty after normalization
	TagPassword     = "password"     // at least 8 chars, at least 1 letter and 1 number
	TagNoWhitespace = "nowhitespace" // no whitespace characters
	TagTrimmed      = "trimmed"      // no leading/trailing spaces
)

// maxRoleNameLen bounds role names to the column width.
const maxRoleNameLen = 64

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagPermission, validatePermission)
	_ = v.validate.RegisterValidation(TagRoleName, validateRoleName)
	_ = v.validate.RegisterValidation(TagPassword, validatePassword)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
	_ = v.validate.RegisterValidation(TagTrimmed, validateTrimmed)
}

// validatePermission accepts "resource:action" strings. It also accepts a
// bare resource or action segment when the field is tagged on one of the
// two halves, as long as the segment contains no colon or whitespace.
func validatePermission(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	if strings.Contains(value, ":") {
		p, ok := authz.ParsePermission(value)
		return ok && !strings.ContainsFunc(p.Resource+p.Action, unicode.IsSpace)
	}
	return !strings.ContainsFunc(value, unicode.IsSpace)
}

func validateRoleName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if len(value) > maxRoleNameLen {
		return false
	}
	return auth.NormalizeRole(value) != ""
}

// validatePassword requires at least 8 characters with a letter and a number.
func validatePassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	if len(value) < 8 {
		return false
	}

	hasLetter := false
	hasNumber := false
	for _, char := range value {
		if unicode.IsLetter(char) {
			hasLetter = true
		}
		if unicode.IsDigit(char) {
			hasNumber = true
		}
		if hasLetter && hasNumber {
			return true
		}
	}
	return false
}

func validateNoWhitespace(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
}

func validateTrimmed(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == strings.TrimSpace(value)
}
