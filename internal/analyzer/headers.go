package analyzer

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Sla0ui/secheaders/internal/catalog"
)

// Analysis is the categorized view of a response's security headers
type Analysis struct {
	PresentHeaders    map[string]string
	MissingHeaders    []string
	DeprecatedHeaders map[string]string
	InsecureValues    map[string][]string
}

// AnalyzeHeaders checks response headers against every catalog definition.
// Headers outside the catalog are ignored. Keys of the returned maps are the
// catalog's canonical names; values keep the case sent by the server.
func AnalyzeHeaders(cat *catalog.Catalog, headers http.Header) Analysis {
	analysis := Analysis{
		PresentHeaders:    make(map[string]string),
		MissingHeaders:    []string{},
		DeprecatedHeaders: make(map[string]string),
		InsecureValues:    make(map[string][]string),
	}

	for _, def := range cat.Definitions() {
		value, found := lookupHeader(headers, def.Name)

		if !found || value == "" {
			if def.Recommended && !def.Deprecated {
				analysis.MissingHeaders = append(analysis.MissingHeaders, def.Name)
			}
			continue
		}

		analysis.PresentHeaders[def.Name] = value

		if def.Deprecated {
			analysis.DeprecatedHeaders[def.Name] = value
		}

		if matches := matchBadValues(value, def.BadValues); len(matches) > 0 {
			analysis.InsecureValues[def.Name] = matches
		}
	}

	sort.Strings(analysis.MissingHeaders)
	return analysis
}

// lookupHeader finds name ignoring case. The canonical key wins; otherwise the
// lexicographically smallest matching key is used. Within a key the first
// value, in response order, is returned.
func lookupHeader(headers http.Header, name string) (string, bool) {
	if values, ok := headers[http.CanonicalHeaderKey(name)]; ok && len(values) > 0 {
		return values[0], true
	}

	var keys []string
	for key, values := range headers {
		if len(values) > 0 && strings.EqualFold(key, name) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return "", false
	}

	sort.Strings(keys)
	return headers[keys[0]][0], true
}

func matchBadValues(value string, badValues []string) []string {
	if len(badValues) == 0 {
		return nil
	}

	lower := strings.ToLower(value)
	var matches []string
	for _, bad := range badValues {
		if strings.Contains(lower, strings.ToLower(bad)) {
			matches = append(matches, bad)
		}
	}
	return matches
}
