package domain

import "time"

// Priority is the attention priority of a watched channel
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the three known priority levels
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Rank returns the sort rank of the priority: high(1) < normal(2) < low(3)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// WatchedChannel is a channel the daemon monitors for one profile
type WatchedChannel struct {
	ChannelID   string
	ProfileID   string
	ChannelName string
	Priority    Priority
	Description string
	AddedAt     time.Time
}
