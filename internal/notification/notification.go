// Package notification renders borrower emails and delivers them off the request
// path, through an in-process worker pool or a Redis list.
package notification

import (
	"context"
	"errors"
)

// ErrQueueFull is returned when the in-process queue cannot take another message.
var ErrQueueFull = errors.New("notification queue full")

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Attempts int    `json:"attempts,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}
