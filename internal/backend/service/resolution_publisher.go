package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/deferlink/deferlink-go/internal/backend/model"
)

// ResolutionPublisher publishes resolution events to NATS JetStream
type ResolutionPublisher struct {
	js nats.JetStreamContext
}

// NewResolutionPublisher creates a new resolution event publisher
func NewResolutionPublisher(js nats.JetStreamContext) *ResolutionPublisher {
	return &ResolutionPublisher{js: js}
}

// Publish publishes a resolution event to the stream
func (p *ResolutionPublisher) Publish(shortID, ip, userAgent string) error {
	event := model.ResolutionEvent{
		ID:        uuid.New().String(),
		ShortID:   shortID,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ResolutionStreamSubject, data)
	return err
}
