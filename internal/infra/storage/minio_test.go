package storage

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "lost/alice/abc.json", ObjectKey(&domain.Record{ID: "abc", OwnerID: "alice"}))
	assert.Equal(t, "lost/_/abc.json", ObjectKey(&domain.Record{ID: "abc"}))
}

func TestEncodeArchived(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &domain.Record{
		ID:      "abc",
		OwnerID: "alice",
		Output:  domain.Output{Label: "FAKE", Confidence: 0.9, Probs: []float64{0.9, 0.1}},
	}
	body, err := encodeArchived(rec, errors.New("db down"), at)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "db down", got["cause"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["archivedAt"])
	record := got["record"].(map[string]any)
	assert.Equal(t, "abc", record["id"])
	assert.Equal(t, "alice", record["ownerId"])
}
