package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mazoezi/backend/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the account-level validations.
// Must be called once at app start-up.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	validate.RegisterStructValidation(updateUserStructValidation, UpdateUser{})
	validate.RegisterStructValidation(resetPasswordStructValidation, ResetUserPassword{})

	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func newUserStructValidation(sl validator.StructLevel) {
	nu := sl.Current().Interface().(NewUser)
	validatePassword(sl, nu.Password, "Password", "password", nu.Name, nu.Email)
}

func updateUserStructValidation(sl validator.StructLevel) {
	uu := sl.Current().Interface().(UpdateUser)
	if uu.Password != "" {
		validatePassword(sl, uu.Password, "Password", "password", uu.Name)
	}
}

func resetPasswordStructValidation(sl validator.StructLevel) {
	rp := sl.Current().Interface().(ResetUserPassword)
	validatePassword(sl, rp.Password, "Password", "password")
}

func validatePassword(sl validator.StructLevel, pwd, fldName, fldTagName string, userAttrs ...string) {
	if pwd == "" {
		return
	}

	if len(pwd) < pwdMinLen {
		sl.ReportError(pwd, fldName, fldTagName, pwdMinLenTag, "")
	}
	if strings.IndexFunc(pwd, unicode.IsSpace) >= 0 {
		sl.ReportError(pwd, fldName, fldTagName, pwdNoSpaceTag, "")
	}
	if isAllNumeric(pwd) {
		sl.ReportError(pwd, fldName, fldTagName, pwdNotAllNumTag, "")
	}
	if isSimilarToAttrs(pwd, userAttrs) {
		sl.ReportError(pwd, fldName, fldTagName, pwdAttrSimTag, "")
	}
}

func isAllNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isSimilarToAttrs flags passwords too close to the user's own name or email
// (and the email's local part).
func isSimilarToAttrs(pwd string, attrs []string) bool {
	pwd = strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		parts := strings.FieldsFunc(attr, func(r rune) bool { return r == '@' || r == ' ' || r == '.' })
		parts = append(parts, attr)
		for _, part := range parts {
			if part == "" {
				continue
			}
			m := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(part, ""))
			if m.Ratio() >= pwdMaxSim {
				return true
			}
		}
	}
	return false
}
