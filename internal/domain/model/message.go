package model

import "time"

// MessageSummary is one entry of the provider's message listing.
type MessageSummary struct {
	ID         string
	From       string
	Subject    string
	Intro      string
	Seen       bool
	ReceivedAt time.Time
}

// MessageDetail is the full message as returned by a single-message fetch.
type MessageDetail struct {
	MessageSummary
	Text string
	HTML []string
}
