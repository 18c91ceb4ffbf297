package detector

import (
	"net/http"
	"testing"
)

func TestDetectDisclosures(t *testing.T) {
	tests := []struct {
		name            string
		headers         http.Header
		expectedTechs   []string
		unexpectedTechs []string
		versioned       bool
	}{
		{
			name:          "Server with version",
			headers:       http.Header{"Server": {"nginx/1.18.0"}},
			expectedTechs: []string{"Nginx"},
			versioned:     true,
		},
		{
			name:          "X-Powered-By header",
			headers:       http.Header{"X-Powered-By": {"PHP/7.4.3"}},
			expectedTechs: []string{"PHP"},
			versioned:     true,
		},
		{
			name: "Multiple technologies",
			headers: http.Header{
				"Server":       {"Apache"},
				"X-Powered-By": {"Express"},
			},
			expectedTechs: []string{"Apache", "Express.js"},
		},
		{
			name:            "No disclosure",
			headers:         http.Header{"Content-Type": {"text/html"}},
			unexpectedTechs: []string{"Nginx", "PHP", "Apache"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DetectDisclosures(tt.headers)

			for _, expected := range tt.expectedTechs {
				found := false
				for _, tech := range d.Technologies {
					if tech == expected {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected technology %s not found in %v", expected, d.Technologies)
				}
			}

			for _, unexpected := range tt.unexpectedTechs {
				for _, tech := range d.Technologies {
					if tech == unexpected {
						t.Errorf("Unexpected technology %s found in %v", unexpected, d.Technologies)
					}
				}
			}

			if d.Versioned != tt.versioned {
				t.Errorf("Expected Versioned=%v, got %v", tt.versioned, d.Versioned)
			}
		})
	}
}

func TestDetectDisclosures_RecordsHeaders(t *testing.T) {
	d := DetectDisclosures(http.Header{"Server": {"cloudflare"}, "Via": {"1.1 varnish"}})

	if d.Headers["Server"] != "cloudflare" {
		t.Errorf("Expected Server header recorded, got %v", d.Headers)
	}
	if d.Headers["Via"] != "1.1 varnish" {
		t.Errorf("Expected Via header recorded, got %v", d.Headers)
	}
	if d.Summary() != "Cloudflare, Varnish" {
		t.Errorf("Unexpected summary %q", d.Summary())
	}
}
