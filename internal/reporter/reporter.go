package reporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Sla0ui/secheaders/internal/models"
)

// Reporter handles generating scan reports in various formats
type Reporter struct {
	results []*models.Result
}

// New creates a new Reporter instance
func New(results []*models.Result) *Reporter {
	return &Reporter{results: results}
}

// Record is the exported form of a result
type Record struct {
	URL               string              `json:"url"`
	StatusCode        *int                `json:"status_code"`
	SecurityScore     float64             `json:"security_score"`
	PresentHeaders    map[string]string   `json:"present_headers"`
	MissingHeaders    []string            `json:"missing_headers"`
	DeprecatedHeaders map[string]string   `json:"deprecated_headers"`
	InsecureValues    map[string][]string `json:"insecure_values"`
	Error             *string             `json:"error"`
	ScanTime          *string             `json:"scan_time"`
}

func toRecord(r *models.Result) Record {
	rec := Record{
		URL:               r.URL,
		StatusCode:        r.StatusCode,
		SecurityScore:     r.Score,
		PresentHeaders:    nonNilMap(r.PresentHeaders),
		MissingHeaders:    r.MissingHeaders,
		DeprecatedHeaders: nonNilMap(r.DeprecatedHeaders),
		InsecureValues:    r.InsecureValues,
	}
	if rec.MissingHeaders == nil {
		rec.MissingHeaders = []string{}
	}
	if rec.InsecureValues == nil {
		rec.InsecureValues = map[string][]string{}
	}
	if r.Error != "" {
		msg := r.Error
		rec.Error = &msg
	}
	if !r.ScanTime.IsZero() {
		ts := r.ScanTime.Format(time.RFC3339Nano)
		rec.ScanTime = &ts
	}
	return rec
}

func fromRecord(rec Record) (*models.Result, error) {
	r := &models.Result{
		URL:               rec.URL,
		StatusCode:        rec.StatusCode,
		Score:             rec.SecurityScore,
		PresentHeaders:    nonNilMap(rec.PresentHeaders),
		MissingHeaders:    rec.MissingHeaders,
		DeprecatedHeaders: nonNilMap(rec.DeprecatedHeaders),
		InsecureValues:    rec.InsecureValues,
	}
	if r.MissingHeaders == nil {
		r.MissingHeaders = []string{}
	}
	if r.InsecureValues == nil {
		r.InsecureValues = map[string][]string{}
	}
	if rec.Error != nil {
		r.Error = *rec.Error
	}
	if rec.ScanTime != nil {
		ts, err := time.Parse(time.RFC3339Nano, *rec.ScanTime)
		if err != nil {
			return nil, fmt.Errorf("invalid scan_time for %s: %w", rec.URL, err)
		}
		r.ScanTime = ts
	}
	return r, nil
}

// Export writes results to outputPath, choosing the format from its
// extension. Unknown extensions fall back to JSON with ".json" appended. It
// returns the path actually written and whether the fallback was used.
func (r *Reporter) Export(outputPath string) (string, bool, error) {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".json":
		return outputPath, false, r.GenerateJSON(outputPath)
	case ".csv":
		return outputPath, false, r.GenerateCSV(outputPath)
	default:
		jsonPath := outputPath + ".json"
		return jsonPath, true, r.GenerateJSON(jsonPath)
	}
}

// GenerateReport creates a report in the specified format(s)
func (r *Reporter) GenerateReport(outputPath, format string) ([]string, error) {
	formats := strings.Split(format, ",")
	outputBase := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))

	var written []string
	for _, f := range formats {
		var path string
		var err error

		switch strings.ToLower(strings.TrimSpace(f)) {
		case "json":
			path = outputBase + ".json"
			err = r.GenerateJSON(path)
		case "csv":
			path = outputBase + ".csv"
			err = r.GenerateCSV(path)
		case "html":
			path = outputBase + ".html"
			err = r.GenerateHTML(path)
		default:
			return written, fmt.Errorf("unsupported report format %q", f)
		}

		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// GetStats returns successful and failed counts
func (r *Reporter) GetStats() (successful, failed int) {
	s := models.Summarize(r.results)
	return s.Successful, s.Failed
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
