package mailer

import (
	"context"
	"errors"
)

// ErrNoRecipients is returned when a message has no To addresses
var ErrNoRecipients = errors.New("message has no recipients")

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email
type Message struct {
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Sender defines the interface for delivering email
type Sender interface {
	// Send delivers msg to every recipient in msg.To
	Send(ctx context.Context, msg Message) error

	// GetName returns the name of the sender implementation
	GetName() string
}
