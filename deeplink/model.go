package deeplink

import "time"

// CustomParameter is a single key/value pair attached to a link. Duplicate
// keys are allowed; lookup returns the first match.
type CustomParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CustomParameters preserves the order the backend returned the pairs in.
type CustomParameters []CustomParameter

// Get returns the value of the first parameter with the given key.
func (p CustomParameters) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// UTMTags carries the standard marketing-attribution parameters.
type UTMTags struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// DeepLinkData is the resolved result for a short id. Timestamp is the epoch
// millisecond time the attribution signal was recorded, not when resolution
// happened.
type DeepLinkData struct {
	LinkID           string           `json:"linkId"`
	ShortID          string           `json:"shortId"`
	Title            string           `json:"title,omitempty"`
	Description      string           `json:"description,omitempty"`
	OriginalURL      string           `json:"originalUrl"`
	TargetURL        string           `json:"targetUrl"`
	AppURL           string           `json:"appUrl"`
	Platform         string           `json:"platform"`
	CustomParameters CustomParameters `json:"customParameters,omitempty"`
	UTMTags          UTMTags          `json:"utmTags"`
	Timestamp        int64            `json:"timestamp"`
}

// DeferredLinkPayload is the loosely-typed record a web intermediary writes
// into the attribution store or the clipboard channel before the app is
// installed. Timestamp is epoch milliseconds.
type DeferredLinkPayload struct {
	ShortID   string `json:"shortId"`
	Timestamp int64  `json:"timestamp"`
}

// ExpiredAt reports whether the payload is older than ttl at the given time.
func (p *DeferredLinkPayload) ExpiredAt(now time.Time, ttl time.Duration) bool {
	age := now.UnixMilli() - p.Timestamp
	return age < 0 || age >= ttl.Milliseconds()
}

// CreatedLinkData describes a link the backend created.
type CreatedLinkData struct {
	LinkID      string `json:"linkId"`
	ShortID     string `json:"shortId"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// LinkInfo is a single entry in a paginated link listing.
type LinkInfo struct {
	LinkID      string `json:"linkId"`
	ShortID     string `json:"shortId"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// UsageInfo reports account quota consumption.
type UsageInfo struct {
	LinksUsed  int `json:"linksUsed"`
	LinksLimit int `json:"linksLimit"`
	Remaining  int `json:"remaining"`
}

// Pagination describes the window of a link listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// CreateLinkResponse is the envelope returned by the create endpoint.
type CreateLinkResponse struct {
	Success bool            `json:"success"`
	Link    CreatedLinkData `json:"link"`
	Usage   UsageInfo       `json:"usage"`
}

// LinksResponse is the envelope returned by the list endpoint.
type LinksResponse struct {
	Links      []LinkInfo `json:"links"`
	Pagination Pagination `json:"pagination"`
	Usage      UsageInfo  `json:"usage"`
}
