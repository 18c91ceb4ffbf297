package catalog

import "sync"

var (
	defaultCatalog *Catalog
	defaultOnce    sync.Once
)

// DefaultDefinitions returns the built-in header definitions
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:         "Content-Security-Policy",
			Description:  "Controls resources the browser is allowed to load",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/CSP",
			BadValues:    []string{"unsafe-inline", "unsafe-eval"},
		},
		{
			Name:         "Strict-Transport-Security",
			Description:  "Enforces HTTPS connections",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Strict-Transport-Security",
		},
		{
			Name:         "X-Frame-Options",
			Description:  "Prevents clickjacking attacks",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/X-Frame-Options",
			GoodValues:   []string{"deny", "sameorigin"},
		},
		{
			Name:         "X-Content-Type-Options",
			Description:  "Prevents MIME type sniffing",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/X-Content-Type-Options",
			GoodValues:   []string{"nosniff"},
		},
		{
			Name:         "Referrer-Policy",
			Description:  "Controls referrer information sent with requests",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Referrer-Policy",
		},
		{
			Name:         "Permissions-Policy",
			Description:  "Controls browser features and APIs",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Permissions-Policy",
		},
		{
			Name:         "Cross-Origin-Embedder-Policy",
			Description:  "Controls cross-origin resource embedding",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cross-Origin-Embedder-Policy",
		},
		{
			Name:         "Cross-Origin-Opener-Policy",
			Description:  "Controls cross-origin window interactions",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cross-Origin-Opener-Policy",
		},
		{
			Name:         "Cross-Origin-Resource-Policy",
			Description:  "Controls cross-origin resource loading",
			Recommended:  true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cross-Origin-Resource-Policy",
		},
		{
			Name:         "X-Download-Options",
			Description:  "Prevents file downloads from opening in the browser context",
			ReferenceURL: "https://docs.microsoft.com/en-us/previous-versions/windows/internet-explorer/ie-developer/compatibility/jj542450(v=vs.85)",
		},
		{
			Name:         "X-Permitted-Cross-Domain-Policies",
			Description:  "Controls cross-domain policy files",
			ReferenceURL: "https://www.adobe.com/devnet/adobe-media-server/articles/cross-domain-xml-for-streaming.html",
		},
		{
			Name:         "X-XSS-Protection",
			Description:  "Legacy XSS filter (deprecated, use CSP instead)",
			Deprecated:   true,
			ReferenceURL: "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/X-XSS-Protection",
		},
	}
}

// Default returns the process-wide built-in catalog
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(DefaultDefinitions())
		if err != nil {
			panic("catalog: invalid built-in definitions: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
