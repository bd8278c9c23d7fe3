// File: internal/webhook/event.go
package webhook

import (
	"encoding/json"
	"strings"
)

// Event types the identity sync acts on. Everything else is acknowledged and ignored.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is a user-lifecycle notification from the identity provider.
type Event struct {
	Type      string     `json:"type" validate:"required"`
	Object    string     `json:"object,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
	Data      *EventData `json:"data" validate:"required"`
}

// EventData is the user object carried by an Event. Email can arrive in
// several shapes, so EmailAddresses is decoded lazily.
type EventData struct {
	ID             string          `json:"id" validate:"required"`
	EmailAddresses json.RawMessage `json:"email_addresses,omitempty"`
	EmailAddress   *string         `json:"email_address,omitempty"`
	Email          *string         `json:"email,omitempty"`
	FirstName      *string         `json:"first_name,omitempty"`
	LastName       *string         `json:"last_name,omitempty"`
}

type emailAddressEntry struct {
	EmailAddress string `json:"email_address"`
}

// emailStrategy tries one payload shape; ok is false when the shape does not apply.
type emailStrategy func(d *EventData) (email string, ok bool)

// emailStrategies are tried in order; the first match wins.
var emailStrategies = []emailStrategy{
	emailFromAddressList,
	emailFromAddressString,
	emailFromFlatField,
}

// ExtractEmail returns the user's email from whichever shape the payload uses.
func ExtractEmail(d *EventData) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, strategy := range emailStrategies {
		if email, ok := strategy(d); ok {
			return email, true
		}
	}
	return "", false
}

// emailFromAddressList handles the provider's native list of address objects.
func emailFromAddressList(d *EventData) (string, bool) {
	if len(d.EmailAddresses) == 0 {
		return "", false
	}
	var entries []emailAddressEntry
	if err := json.Unmarshal(d.EmailAddresses, &entries); err != nil || len(entries) == 0 {
		return "", false
	}
	return nonEmpty(entries[0].EmailAddress)
}

func emailFromAddressString(d *EventData) (string, bool) {
	if len(d.EmailAddresses) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(d.EmailAddresses, &s); err != nil {
		return "", false
	}
	return nonEmpty(s)
}

func emailFromFlatField(d *EventData) (string, bool) {
	for _, candidate := range []*string{d.EmailAddress, d.Email} {
		if candidate == nil {
			continue
		}
		if email, ok := nonEmpty(*candidate); ok {
			return email, true
		}
	}
	return "", false
}

// PlaceholderEmail is the deterministic address stored for unsigned test
// deliveries that carry no email.
func PlaceholderEmail(userID string) string {
	return "test-" + userID + "@clerk.test"
}

// DisplayName joins first and last name. Either alone is used as-is; with
// neither the result is nil.
func DisplayName(first, last *string) *string {
	f, hasFirst := optional(first)
	l, hasLast := optional(last)
	var name string
	switch {
	case hasFirst && hasLast:
		name = f + " " + l
	case hasFirst:
		name = f
	case hasLast:
		name = l
	default:
		return nil
	}
	return &name
}

func optional(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return nonEmpty(*s)
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
