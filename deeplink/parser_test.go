package deeplink

import "testing"

func TestExtractShortID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"path segment", "https://links.example.com/r/abc123", "abc123", true},
		{"path segment deep", "https://links.example.com/v2/r/abc123/extra", "abc123", true},
		{"path wins over query", "https://links.example.com/r/fromPath?shortId=fromQuery", "fromPath", true},
		{"shortId query", "https://example.com/open?shortId=q1", "q1", true},
		{"id query fallback", "https://example.com/open?id=q2", "q2", true},
		{"shortId wins over id", "https://example.com/open?id=second&shortId=first", "first", true},
		{"custom scheme", "myapp://open?shortId=s9", "s9", true},
		{"trailing r segment", "https://example.com/r/", "", false},
		{"r only", "https://example.com/r", "", false},
		{"no match", "https://example.com/about", "", false},
		{"empty query value", "https://example.com/open?shortId=", "", false},
		{"unparsable", "http://%zz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractShortID(tt.url)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ExtractShortID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.ok)
			}
		})
	}
}
