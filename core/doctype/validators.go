package doctype

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

var (
	docCodeTag  = "doccode"
	docCodeText = "unknown document type code"

	weightSumTag  = "weightsum"
	weightSumText = "supervisor and committee weights must add up to 100"

	errWeightSum = weightSumText
)

// InitValidators registers the document type validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(docCodeTag, docCodeValidation)
	core.RegisterCustomTranslation(validate, translator, docCodeTag, docCodeText)

	validate.RegisterStructValidation(newDocumentTypeStructValidation, NewDocumentType{})
	core.RegisterCustomTranslation(validate, translator, weightSumTag, weightSumText)
}

// Custom Validators

func docCodeValidation(fl validator.FieldLevel) bool {
	return Code(fl.Field().String()).Valid()
}

// newDocumentTypeStructValidation checks that the weights of a new (active) type add up to 100.
func newDocumentTypeStructValidation(sl validator.StructLevel) {
	ndt, ok := sl.Current().Interface().(NewDocumentType)
	if !ok {
		return
	}
	if ndt.WeightSupervisor+ndt.WeightCommittee != 100 {
		sl.ReportError(ndt.WeightSupervisor, "weight_supervisor", "WeightSupervisor", weightSumTag, "")
		sl.ReportError(ndt.WeightCommittee, "weight_committee", "WeightCommittee", weightSumTag, "")
	}
}

// checkWeights is applied to the merged result of an update.
func checkWeights(dt DocumentType) error {
	if !dt.IsActive || dt.WeightsValid() {
		return nil
	}
	return core.NewValidationError(
		nil,
		core.FieldError{Field: "weight_supervisor", Error: errWeightSum},
		core.FieldError{Field: "weight_committee", Error: errWeightSum},
	)
}
