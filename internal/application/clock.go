package application

import (
	"time"

	"github.com/google/uuid"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewID returns a random UUID string. Services take it as a field so tests can
// hand out predictable ids.
func NewID() string { return uuid.NewString() }
