// Package queue defines message payloads exchanged over the message broker.
package queue

// MailEvent is published whenever a one-time code is issued. A downstream
// mail worker renders and sends the actual email; this service only emits
// the event. The Code is the human-entered 6-digit secret, the Link embeds
// the opaque verification token so the recipient must present both.
type MailEvent struct {
	EventID string `json:"event_id"`
	Kind    string `json:"kind"` // "verify-email" or "reset-password"
	To      string `json:"to"`
	Code    string `json:"code"`
	Token   string `json:"token"`
	Link    string `json:"link"`
	SentAt  string `json:"sent_at"`
}
