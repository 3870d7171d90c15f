package model

import "time"

// Notification message types. The first two are severities emitted by
// the telemetry threshold rules; the rest are broadcast events created
// by the site and pickup endpoints.
const (
	MessageWarning          = "WARNING"
	MessageCritical         = "CRITICAL"
	MessageNewContainerSite = "new_container_site"
	MessageWasteCollection  = "waste_collection"
)

// Notification is an immutable feed entry. Rows are insert-only; the
// only mutation is administrative deletion.
type Notification struct {
	ID          int64     `json:"notificationId"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      *int64    `json:"userId,omitempty"`
	ContainerID *int64    `json:"containerId,omitempty"`
	SiteID      *int64    `json:"containerSiteId,omitempty"`
}
