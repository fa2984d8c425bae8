package engagement

import (
	"math"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/indicator"
)

var (
	genericSettingTag  = "genericsetting"
	genericSettingText = "unknown generic setting"

	weightSumTag  = "weightsum"
	weightSumText = "weightings must sum to 100"
)

// EditForm is the course settings edit surface: percentages, generic settings and indicator specific values.
type EditForm struct {
	Weights map[string]float64   `json:"weights" validate:"required,dive,gte=0,lte=100"`
	Generic map[string]string    `json:"generic" validate:"omitempty,dive,keys,genericsetting,endkeys"`
	Values  indicator.FormValues `json:"values"`

	// Defaulted is set when no weights are stored yet and Weights holds the default split.
	Defaulted bool `json:"defaulted"`
}

func (f *EditForm) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

// Flatten merges the form into a single field map, the way the edit form is populated.
// Weights are keyed "weighting_<indicator>".
func (f EditForm) Flatten() map[string]string {
	flat := make(map[string]string, len(f.Weights)+len(f.Generic)+len(f.Values))
	for name, pct := range f.Weights {
		flat["weighting_"+name] = strconv.FormatFloat(pct, 'f', -1, 64)
	}
	for name, val := range f.Values {
		flat[name] = val
	}
	for name, val := range f.Generic {
		flat[name] = val
	}
	return flat
}

// InitValidators registers the engagement validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(genericSettingTag, genericSettingValidation)
	core.RegisterCustomTranslation(validate, translator, genericSettingTag, genericSettingText)

	validate.RegisterStructValidation(editFormStructValidation, EditForm{})
	core.RegisterCustomTranslation(validate, translator, weightSumTag, weightSumText)
}

func genericSettingValidation(fl validator.FieldLevel) bool {
	return IsGenericSetting(fl.Field().String())
}

func editFormStructValidation(sl validator.StructLevel) {
	form := sl.Current().Interface().(EditForm)
	if len(form.Weights) == 0 {
		return
	}
	var sum float64
	for _, pct := range form.Weights {
		sum += pct
	}
	if math.Abs(sum-100) > 1e-6 {
		sl.ReportError(form.Weights, "weights", "Weights", weightSumTag, "")
	}
}
