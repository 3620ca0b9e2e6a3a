package deeplink

import (
	"net/url"
	"strings"
)

// ExtractShortID pulls a short link id out of an inbound URL.
//
// The path convention wins: any "/r/{id}" segment pair yields id. Otherwise
// the query parameters are consulted, "shortId" first, then "id". The second
// return value is false when neither pattern matches.
func ExtractShortID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	segments := strings.Split(u.Path, "/")
	for i, segment := range segments {
		if segment == "r" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], true
		}
	}

	query := u.Query()
	for _, name := range []string{"shortId", "id"} {
		if values, ok := query[name]; ok && len(values) > 0 && values[0] != "" {
			return values[0], true
		}
	}

	return "", false
}
