package model

import "time"

// ResolutionEvent records one successful deferred-link resolution served to
// an SDK client.
type ResolutionEvent struct {
	ID        string    `json:"id"`
	ShortID   string    `json:"short_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ResolutionStreamName     = "RESOLUTIONS"
	ResolutionStreamSubject  = "resolutions.events"
	ResolutionConsumerName   = "resolution-logger"
	ResolutionStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
