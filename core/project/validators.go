package project

import (
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
)

var (
	errInvalidTagName = errors.New("invalid tag name")

	tagNameMaxLen = 50
	tagNameTag    = "tagname"
	tagNameText   = "tag names are single-line and at most 50 characters long"
)

// InitValidators registers the project validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tagNameTag, tagNameValidation)
	core.RegisterCustomTranslation(validate, translator, tagNameTag, tagNameText)
}

// Validate cleans and checks the form values.
func (fv *FormValues) Validate(validate *validator.Validate) error {
	fv.Clean()
	return validate.Struct(fv)
}

// ValidateTagName checks a tag name typed by the user.
func ValidateTagName(validate *validator.Validate, name string) error {
	if err := validate.Var(name, tagNameTag); err != nil {
		return core.NewValidationError(errInvalidTagName, core.FieldError{Field: "tagName", Error: tagNameText})
	}
	return nil
}

// tagNameValidation rejects long or multi-line tag names.
func tagNameValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if len([]rune(name)) > tagNameMaxLen {
		return false
	}
	for _, r := range name {
		if r == '\n' || r == '\r' || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
