package analyses

import (
	"net/url"
	"strings"
	"time"
)

// ID tipe untuk Record
type ID string

// Request is what the caller submitted. Only InputText is sent to the analyzer;
// SourceURL and SourcePlatform stay local.
type Request struct {
	InputText      string `json:"inputText"`
	SourceURL      string `json:"sourceUrl,omitempty"`
	SourcePlatform string `json:"sourcePlatform,omitempty"`
}

// NewRequest trims and validates a submission. text must be non-empty; url, when
// given, must be an absolute http(s) URL.
func NewRequest(text, rawURL, platform string) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, errTextRequired
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Request{}, errBadSourceURL
		}
	}
	return Request{
		InputText:      text,
		SourceURL:      rawURL,
		SourcePlatform: strings.TrimSpace(platform),
	}, nil
}

// ModelIdentity names the analyzer build that produced an Output.
type ModelIdentity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultModel is the identity recorded when none is configured.
var DefaultModel = ModelIdentity{Name: "distilbert-fakenews", Version: "v1"}

// Output value object
type Output struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Probs      []float64 `json:"probs"`
}

type Highlight struct {
	Span  string  `json:"span"`
	Score float64 `json:"score"`
}

type Explanation struct {
	Summary    string      `json:"summary"`
	Method     string      `json:"method"`
	Highlights []Highlight `json:"highlights"`
}

// SocialPost is a related post found by the analyzer (reddit, google news, ...).
type SocialPost struct {
	Text        string `json:"text"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// Aggregate Root: Record
//
// A Record is written once, whole, and afterwards only read or deleted.
type Record struct {
	ID            ID            `json:"id"`
	OwnerID       string        `json:"ownerId"`
	CreatedAt     time.Time     `json:"createdAt"`
	Request       Request       `json:"request"`
	Model         ModelIdentity `json:"model"`
	Output        Output        `json:"output"`
	Explanation   *Explanation  `json:"explanation,omitempty"`
	SocialContext []SocialPost  `json:"socialContext,omitempty"`
}
