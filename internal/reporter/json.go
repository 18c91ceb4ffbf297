package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sla0ui/secheaders/internal/models"
)

// WriteJSON encodes the results as an indented JSON array
func (r *Reporter) WriteJSON(w io.Writer) error {
	records := make([]Record, 0, len(r.results))
	for _, result := range r.results {
		records = append(records, toRecord(result))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// GenerateJSON creates a JSON report
func (r *Reporter) GenerateJSON(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	if err := r.WriteJSON(file); err != nil {
		return err
	}
	return file.Close()
}

// ReadJSON decodes results previously written by WriteJSON
func ReadJSON(rd io.Reader) ([]*models.Result, error) {
	var records []Record
	if err := json.NewDecoder(rd).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON results: %w", err)
	}

	results := make([]*models.Result, 0, len(records))
	for _, rec := range records {
		result, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// LoadJSON reads a JSON results file
func LoadJSON(path string) ([]*models.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	return ReadJSON(file)
}
