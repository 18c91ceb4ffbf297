package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"URL", "Status Code", "Security Score",
	"Present Headers", "Missing Headers",
	"Deprecated Headers", "Insecure Values", "Error",
}

// WriteCSV writes one row per result. Multi-valued cells are joined with
// "; "; insecure values render as name=match pairs joined with ", ", with
// several matches for one header separated by "|".
func (r *Reporter) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range r.results {
		status := ""
		if result.StatusCode != nil {
			status = strconv.Itoa(*result.StatusCode)
		}

		var insecure []string
		for _, name := range sortedKeys(result.InsecureValues) {
			insecure = append(insecure, name+"="+strings.Join(result.InsecureValues[name], "|"))
		}

		row := []string{
			result.URL,
			status,
			strconv.FormatFloat(result.Score, 'f', -1, 64),
			strings.Join(sortedKeys(result.PresentHeaders), "; "),
			strings.Join(result.MissingHeaders, "; "),
			strings.Join(sortedKeys(result.DeprecatedHeaders), "; "),
			strings.Join(insecure, ", "),
			result.Error,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// GenerateCSV creates a CSV report
func (r *Reporter) GenerateCSV(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := r.WriteCSV(file); err != nil {
		return err
	}
	return file.Close()
}
