package events

import "time"

// EventType names one change-notification kind.
type EventType string

const (
	PostCreated    EventType = "post:created"
	PostUpdated    EventType = "post:updated"
	PostDestroyed  EventType = "post:destroyed"
	PostHidden     EventType = "post:hidden"
	PostUnhidden   EventType = "post:unhidden"
	CommentCreated EventType = "comment:created"
	CommentUpdated EventType = "comment:updated"
	CommentDestroyed EventType = "comment:destroyed"
	LikeAdded      EventType = "like:added"
	LikeRemoved    EventType = "like:removed"
)

// Event carries the affected post and the closed set of timelines and
// users a committed fan-out touched. Delivery is best-effort and sits
// outside the core's consistency guarantees.
type Event struct {
	Type        EventType `json:"type"`
	PostID      int64     `json:"post_id"`
	CommentID   int64     `json:"comment_id,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	TimelineIDs []int64   `json:"timeline_ids,omitempty"`
	UserIDs     []int64   `json:"user_ids,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Observer receives committed events.
type Observer interface {
	Update(event Event) error
	Name() string
}
