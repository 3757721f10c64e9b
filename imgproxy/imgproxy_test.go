package imgproxy_test

import (
	"testing"

	"lumina/imgproxy"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	resolver := imgproxy.Resolver{Base: "https://proxy.lumina.app/image"}

	tests := []struct {
		name     string
		url      string
		browser  bool
		expected string
	}{
		{
			name:     "native runtime keeps original",
			url:      "https://example.com/a.png",
			browser:  false,
			expected: "https://example.com/a.png",
		},
		{
			name:     "browser runtime gets proxied",
			url:      "https://example.com/a.png",
			browser:  true,
			expected: "https://proxy.lumina.app/image?url=https%3A%2F%2Fexample.com%2Fa.png",
		},
		{
			name:     "query parameters survive encoding",
			url:      "https://example.com/a.png?w=800&h=600",
			browser:  true,
			expected: "https://proxy.lumina.app/image?url=https%3A%2F%2Fexample.com%2Fa.png%3Fw%3D800%26h%3D600",
		},
		{
			name:     "empty url native",
			url:      "",
			browser:  false,
			expected: "",
		},
		{
			name:     "empty url browser",
			url:      "",
			browser:  true,
			expected: "https://proxy.lumina.app/image?url=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.Resolve(tt.url, tt.browser))
		})
	}
}
