package models

import (
	"time"
)

// Notification is one event pushed to operator consoles over the live feed.
type Notification struct {
	Type       string      `json:"type"`    // e.g. "lead_approved", "withdrawal_processed"
	Message    string      `json:"message"` // human readable summary
	Data       interface{} `json:"data,omitempty"`
	OperatorID string      `json:"operatorId,omitempty"` // set on direct messages only
	At         time.Time   `json:"at"`
}
