package inference

import (
	"context"

	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
)

// Classifier sends one text to the external analyzer. Implementations make a
// single attempt and report failures as faults.KindServiceUnavailable (not
// reachable) or faults.KindInvalidUpstream (reachable, unusable answer).
type Classifier interface {
	Classify(ctx context.Context, text string) (*analyses.Analysis, error)
}

// Pinger is implemented by classifiers that can report reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}
