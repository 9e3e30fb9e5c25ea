package analyses

import "github.com/bryanwahyu/newsgate/internal/domain/faults"

var (
	errTextRequired = faults.Validation("analyses.NewRequest", "text cannot be blank")
	errBadSourceURL = faults.Validation("analyses.NewRequest", "url must be an absolute http or https URL")
)
