// Package summarize generates text summaries and image captions for scraped
// artifacts. Model inference is delegated to an external inference service;
// this package only feeds it and stores results.
package summarize

import "context"

// TextSummarizer condenses article text into a short summary.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ImageCaptioner produces a one-line caption for an image.
type ImageCaptioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// Summary is the artifact written next to each summarized object.
type Summary struct {
	Filename    string `json:"filename"`
	SummaryType string `json:"summary_type"`
	Summary     string `json:"summary"`
}
