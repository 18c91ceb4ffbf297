package detector

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DisclosureHeaders reveal server software or versions to clients
var DisclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
	"X-Generator",
	"X-Drupal-Cache",
	"X-Runtime",
	"Via",
}

// Pre-compiled regex patterns for performance
var (
	techPatterns     map[string]*regexp.Regexp
	techPatternsOnce sync.Once
	versionRegex     = regexp.MustCompile(`\d+\.\d+`)
)

func initTechPatterns() {
	techPatterns = make(map[string]*regexp.Regexp)

	patterns := map[string]string{
		"Apache":     `(?i)apache`,
		"Nginx":      `(?i)nginx`,
		"IIS":        `(?i)microsoft-iis`,
		"LiteSpeed":  `(?i)litespeed`,
		"Cloudflare": `(?i)cloudflare`,
		"Varnish":    `(?i)varnish`,
		"PHP":        `(?i)php`,
		"ASP.NET":    `(?i)asp\.net`,
		"Express.js": `(?i)express`,
		"Drupal":     `(?i)drupal`,
		"WordPress":  `(?i)wordpress`,
		"Next.js":    `(?i)next\.js`,
	}

	for tech, pattern := range patterns {
		techPatterns[tech] = regexp.MustCompile(pattern)
	}
}

// Disclosure is what a response reveals about the software serving it
type Disclosure struct {
	Headers      map[string]string
	Technologies []string
	Versioned    bool
}

// DetectDisclosures finds fingerprinting headers. It is informational and
// does not affect the security score.
func DetectDisclosures(headers http.Header) Disclosure {
	techPatternsOnce.Do(initTechPatterns)

	d := Disclosure{Headers: make(map[string]string)}
	seen := make(map[string]bool)

	for _, name := range DisclosureHeaders {
		value := headers.Get(name)
		if value == "" {
			continue
		}
		d.Headers[name] = value

		if versionRegex.MatchString(value) {
			d.Versioned = true
		}

		for tech, pattern := range techPatterns {
			if pattern.MatchString(value) && !seen[tech] {
				d.Technologies = append(d.Technologies, tech)
				seen[tech] = true
			}
		}
	}

	sort.Strings(d.Technologies)
	return d
}

// Summary renders the detected technologies for display
func (d Disclosure) Summary() string {
	if len(d.Technologies) == 0 {
		return ""
	}
	return strings.Join(d.Technologies, ", ")
}
