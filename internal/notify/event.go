// Package notify pushes video status changes to connected clients.
package notify

import (
	"context"

	"pulsegen/internal/domain"
)

const EventVideoStatus = "video_status"

// Event is a single status change of a video.
type Event struct {
	VideoID string
	OwnerID int64
	Status  domain.VideoStatus
}

// Publisher delivers events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type wireMessage struct {
	Event string     `json:"event"`
	Data  wireStatus `json:"data"`
}

type wireStatus struct {
	ID     string             `json:"id"`
	Status domain.VideoStatus `json:"status"`
}

func (ev Event) wire() wireMessage {
	return wireMessage{
		Event: EventVideoStatus,
		Data:  wireStatus{ID: ev.VideoID, Status: ev.Status},
	}
}
