// Package ai holds what the analyzer adapters share: the response wire format and
// the circuit breaker that guards them.
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
)

// PredictRequest is the only payload sent to the analyzer.
type PredictRequest struct {
	Text string `json:"text"`
}

// PredictResponse is the analyzer answer, as served by the predict_explain endpoint.
type PredictResponse struct {
	Label         string           `json:"label"`
	Confidence    float64          `json:"confidence"`
	Probs         []float64        `json:"probs"`
	Explanation   *wireExplanation `json:"explanation"`
	SocialContext []wireSocialPost `json:"social_context"`
}

type wireExplanation struct {
	Summary    string `json:"summary"`
	Method     string `json:"method"`
	Highlights []struct {
		Span  string  `json:"span"`
		Score float64 `json:"score"`
	} `json:"highlights"`
}

type wireSocialPost struct {
	Text      string  `json:"text"`
	URL       string  `json:"url"`
	Source    string  `json:"source"`
	Published *string `json:"published"`
}

// DecodeResponse parses an analyzer body. An empty body, a JSON null, malformed
// JSON or a missing label are all reported as faults.KindInvalidUpstream.
func DecodeResponse(op string, body []byte) (*analyses.Analysis, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, faults.InvalidUpstream(op, "analysis service returned an empty response", nil)
	}
	var pr PredictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, faults.InvalidUpstream(op, "analysis service returned a malformed response", err)
	}
	if pr.Label == "" {
		return nil, faults.InvalidUpstream(op, "analysis service response has no label", nil)
	}
	if pr.Confidence < 0 || pr.Confidence > 1 {
		return nil, faults.InvalidUpstream(op, "analysis service response has no usable confidence",
			fmt.Errorf("confidence %v out of range", pr.Confidence))
	}
	return pr.Analysis(), nil
}

// Analysis converts the wire answer into the domain value, keeping order.
func (pr *PredictResponse) Analysis() *analyses.Analysis {
	a := &analyses.Analysis{
		Label:      pr.Label,
		Confidence: pr.Confidence,
		Probs:      pr.Probs,
	}
	if a.Probs == nil {
		a.Probs = []float64{}
	}
	if pr.Explanation != nil {
		e := &analyses.Explanation{
			Summary:    pr.Explanation.Summary,
			Method:     pr.Explanation.Method,
			Highlights: make([]analyses.Highlight, 0, len(pr.Explanation.Highlights)),
		}
		for _, h := range pr.Explanation.Highlights {
			e.Highlights = append(e.Highlights, analyses.Highlight{Span: h.Span, Score: h.Score})
		}
		a.Explanation = e
	}
	if len(pr.SocialContext) > 0 {
		a.SocialContext = make([]analyses.SocialPost, 0, len(pr.SocialContext))
		for _, p := range pr.SocialContext {
			sp := analyses.SocialPost{Text: p.Text, URL: p.URL, Source: p.Source}
			if p.Published != nil {
				sp.PublishedAt = *p.Published
			}
			a.SocialContext = append(a.SocialContext, sp)
		}
	}
	return a
}
