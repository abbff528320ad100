// Package queue defines the mail outbox: messages published to RabbitMQ by
// the API and drained by a background consumer into the mail log.
package queue

import "time"

// MailQueueName is the durable queue carrying outgoing mail.
const MailQueueName = "mail.outbox"

const (
	MailWelcome       = "welcome"
	MailPasswordReset = "password_reset"
)

// MailMessage is one e-mail waiting to be delivered.  It contains
// everything a delivery worker needs without querying the database.
type MailMessage struct {
	Kind      string    `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
