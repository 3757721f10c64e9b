// Package imgproxy rewrites article image URLs for browser runtimes.
// Browser-hosted fetches of third-party images hit cross-origin
// restrictions that native apps never see, so web clients load images
// through a proxy endpoint that re-serves them with permissive CORS
// headers. Native clients get the original URL untouched.
package imgproxy

import "net/url"

// Resolver holds the fixed proxy endpoint base, e.g.
// "https://proxy.lumina.app/image". Injected from config at startup.
type Resolver struct {
	Base string
}

// Resolve returns the URL a client on the given runtime should fetch.
// Pure string construction, no network access.
func (r Resolver) Resolve(originalUrl string, browser bool) string {
	if !browser {
		return originalUrl
	}
	return r.Base + "?url=" + url.QueryEscape(originalUrl)
}
