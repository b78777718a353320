package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes, one per kind of identifier handed out by the daemon
const (
	PrefixEvent   = "evt_"
	PrefixRequest = "req_"
)

// NewEvent generates a journal event ID with evt_ prefix
func NewEvent() string {
	return PrefixEvent + uuid.New().String()
}

// NewRequest generates a status API request ID with req_ prefix
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}
