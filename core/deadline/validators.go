package deadline

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

var (
	rangeTag  = "batchrange"
	rangeText = "applies_until must be after applies_from"

	uniqueDocTypeTag  = "uniquedoctype"
	uniqueDocTypeText = "a document type can only have one deadline per batch"
)

// InitValidators registers the deadline batch validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newBatchStructValidation, NewBatch{})
	core.RegisterCustomTranslation(validate, translator, rangeTag, rangeText)
	core.RegisterCustomTranslation(validate, translator, uniqueDocTypeTag, uniqueDocTypeText)
}

// newBatchStructValidation checks the batch range and that document types are not repeated.
func newBatchStructValidation(sl validator.StructLevel) {
	nb, ok := sl.Current().Interface().(NewBatch)
	if !ok {
		return
	}
	if nb.AppliesUntil != nil && !nb.AppliesUntil.After(nb.AppliesFrom) {
		sl.ReportError(nb.AppliesUntil, "applies_until", "AppliesUntil", rangeTag, "")
	}
	seen := make(map[string]bool, len(nb.Deadlines))
	for _, d := range nb.Deadlines {
		if seen[d.DocumentTypeID] {
			sl.ReportError(nb.Deadlines, "deadlines", "Deadlines", uniqueDocTypeTag, "")
			return
		}
		seen[d.DocumentTypeID] = true
	}
}
