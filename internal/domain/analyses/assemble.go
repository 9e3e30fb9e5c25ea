package analyses

import "time"

// Analysis is the classifier output an Assemble call copies into a Record.
type Analysis struct {
	Label         string
	Confidence    float64
	Probs         []float64
	Explanation   *Explanation
	SocialContext []SocialPost
}

// Assemble builds the Record for one successful analysis. The model identity comes
// from the caller's configuration, never from the analyzer response.
func Assemble(id ID, ownerID string, now time.Time, model ModelIdentity, req Request, a Analysis) *Record {
	return &Record{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: now.UTC(),
		Request:   req,
		Model:     model,
		Output: Output{
			Label:      a.Label,
			Confidence: a.Confidence,
			Probs:      a.Probs,
		},
		Explanation:   a.Explanation,
		SocialContext: a.SocialContext,
	}
}
