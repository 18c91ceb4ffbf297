package models

import (
	"time"
)

// Result is the outcome of scanning one URL. A result is either successful
// (StatusCode set, Error empty) or failed (StatusCode nil, Error set, no
// header data, score 0). Results are not modified after construction.
type Result struct {
	URL               string
	StatusCode        *int
	Score             float64
	PresentHeaders    map[string]string
	MissingHeaders    []string
	DeprecatedHeaders map[string]string
	InsecureValues    map[string][]string
	Error             string
	ErrorKind         string
	ScanTime          time.Time
	FinalURL          string
	Disclosures       map[string]string
}

// IsSuccess reports whether the URL was fetched and analyzed
func (r *Result) IsSuccess() bool {
	return r.Error == "" && r.StatusCode != nil
}

// NewFailedResult builds a result for a URL that could not be fetched
func NewFailedResult(url, kind, message string, scanTime time.Time) *Result {
	return &Result{
		URL:               url,
		PresentHeaders:    map[string]string{},
		MissingHeaders:    []string{},
		DeprecatedHeaders: map[string]string{},
		InsecureValues:    map[string][]string{},
		Error:             message,
		ErrorKind:         kind,
		ScanTime:          scanTime,
	}
}

// Summary aggregates a batch of results
type Summary struct {
	Total        int
	Successful   int
	Failed       int
	AverageScore float64
}

// Summarize counts successes and failures and averages successful scores
func Summarize(results []*Result) Summary {
	s := Summary{Total: len(results)}

	var total float64
	for _, r := range results {
		if r.IsSuccess() {
			s.Successful++
			total += r.Score
		}
	}
	s.Failed = s.Total - s.Successful

	if s.Successful > 0 {
		s.AverageScore = total / float64(s.Successful)
	}
	return s
}
