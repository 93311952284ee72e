package domain

import (
	"strings"
	"time"
)

// Client is identified by lowercase email and accumulates a contact
// profile plus an append-only message history across every thread it
// has opened.
type Client struct {
	ClientID    string          `json:"client_id"`
	Email       string          `json:"email"`
	Name        string          `json:"name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Company     string          `json:"company,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	MessageLog  []ClientMessage `json:"message_log"`
}

// ClientMessage is one append-only entry in a client's history.
type ClientMessage struct {
	MsgID     string    `json:"msg_id"`
	ThreadID  string    `json:"thread_id"`
	Body      string    `json:"body"`
	Direction string    `json:"direction"` // "inbound" | "outbound"
	Ts        time.Time `json:"ts"`
}

// NormalizeEmail lowercases and trims an email address the way every
// client lookup in the store must before comparing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
