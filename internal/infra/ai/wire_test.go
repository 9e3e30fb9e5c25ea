package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
)

func TestDecodeResponse_Full(t *testing.T) {
	body := `{
	  "label": "REAL",
	  "confidence": 0.91,
	  "probs": [0.09, 0.91],
	  "explanation": {
	    "summary": "The model predicts this is REAL with 0.91 confidence.",
	    "method": "simple_rationale_v1",
	    "highlights": [{"span": "parliament", "score": 1.0}, {"span": "budget", "score": 0.97}]
	  },
	  "social_context": [
	    {"text": "Budget passes", "url": "https://reddit.com/r/x", "source": "reddit", "published": "2026-01-02"},
	    {"text": "Coverage", "url": "https://news.google.com/y", "source": "google", "published": null}
	  ]
	}`

	a, err := DecodeResponse("test", []byte(body))
	require.NoError(t, err)

	assert.Equal(t, "REAL", a.Label)
	assert.InDelta(t, 0.91, a.Confidence, 1e-9)
	assert.Equal(t, []float64{0.09, 0.91}, a.Probs)
	require.NotNil(t, a.Explanation)
	assert.Equal(t, "simple_rationale_v1", a.Explanation.Method)
	assert.Equal(t, []analyses.Highlight{{Span: "parliament", Score: 1.0}, {Span: "budget", Score: 0.97}}, a.Explanation.Highlights)
	assert.Equal(t, []analyses.SocialPost{
		{Text: "Budget passes", URL: "https://reddit.com/r/x", Source: "reddit", PublishedAt: "2026-01-02"},
		{Text: "Coverage", URL: "https://news.google.com/y", Source: "google"},
	}, a.SocialContext)
}

func TestDecodeResponse_OptionalPartsAbsent(t *testing.T) {
	a, err := DecodeResponse("test", []byte(`{"label":"FAKE","confidence":0.87,"probs":[0.87,0.13]}`))
	require.NoError(t, err)
	assert.Nil(t, a.Explanation)
	assert.Nil(t, a.SocialContext)
}

func TestDecodeResponse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"whitespace":     "  \n",
		"null":           "null",
		"malformed":      `{"label":`,
		"no label":       `{"confidence":0.5,"probs":[0.5,0.5]}`,
		"bad confidence": `{"label":"FAKE","confidence":7}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResponse("test", []byte(body))
			assert.Equal(t, faults.KindInvalidUpstream, faults.KindOf(err))
		})
	}
}
