package types

import (
	"time"
)

// EventRecord is the canonical representation of an upstream event,
// both in memory and in the durable events table.
type EventRecord struct {
	ID          string
	Title       string
	Description string
	StartAt     time.Time
	UpdatedAt   time.Time
	Place       string
	Link        string
}

// Classification is the reconciler's verdict for one observed payload
type Classification string

const (
	ClassificationNew       Classification = "new"
	ClassificationUpdated   Classification = "updated"
	ClassificationUnchanged Classification = "unchanged"
)

// Change pairs an event record with its classification. Only new and
// updated changes enter the outbound queue.
type Change struct {
	Record         EventRecord
	Classification Classification
}

// RawEvent is the wire shape of a single upstream event payload.
// Pointer fields distinguish an absent field from an empty one.
type RawEvent struct {
	URLID        *string `json:"urlId"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	StartDate    *string `json:"startDate"`
	UpdatedAt    *string `json:"updatedAt"`
	LocationName *string `json:"locationName"`
}

// MissingFieldLiteral is substituted for absent upstream string fields.
const MissingFieldLiteral = "null"

// EventLinkBase is the public page prefix an event id is appended to
// when deriving the record's link.
const EventLinkBase = "https://peoply.app/events/"

// Link derives the public event page URL for an event id.
func Link(id string) string {
	return EventLinkBase + id
}
