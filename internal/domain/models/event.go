package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventCategory tags a webhook event for logging and activity counters.
type EventCategory string

const (
	CategoryVerification EventCategory = "verification"
	CategoryStatus       EventCategory = "status_callback"
	CategoryMessage      EventCategory = "inbound_message"
	CategoryUnrecognized EventCategory = "unrecognized"
)

// WebhookEvent is the closed set of events a webhook call can carry:
// VerificationRequest, StatusEvent, MessageEvent or UnrecognizedEvent.
type WebhookEvent interface {
	Category() EventCategory
	sealed()
}

// VerificationRequest is the GET handshake Meta issues to confirm endpoint ownership.
type VerificationRequest struct {
	Mode      string
	Token     string
	Challenge string
}

// NewVerificationRequest builds the handshake event from the hub.* query values.
func NewVerificationRequest(mode, token, challenge string) VerificationRequest {
	return VerificationRequest{Mode: mode, Token: token, Challenge: challenge}
}

// Matches reports whether the request subscribes with the expected token.
func (v VerificationRequest) Matches(verifyToken string) bool {
	return v.Mode == "subscribe" && v.Token != "" && v.Token == verifyToken
}

func (VerificationRequest) Category() EventCategory { return CategoryVerification }
func (VerificationRequest) sealed() {}

// StatusEvent carries the delivery receipts of a single change value.
type StatusEvent struct {
	Statuses []StatusCallback
}

func (StatusEvent) Category() EventCategory { return CategoryStatus }
func (StatusEvent) sealed() {}

// MessageEvent carries the first inbound message of a change value.
type MessageEvent struct {
	Message InboundMessage
}

func (MessageEvent) Category() EventCategory { return CategoryMessage }
func (MessageEvent) sealed() {}

// UnrecognizedEvent is anything without actionable content: profile changes,
// empty bodies, malformed JSON.
type UnrecognizedEvent struct {
	Reason string
}

func (UnrecognizedEvent) Category() EventCategory { return CategoryUnrecognized }
func (UnrecognizedEvent) sealed() {}

// StatusKind is the delivery state reported by a status callback.
type StatusKind string

const (
	StatusSent      StatusKind = "sent"
	StatusDelivered StatusKind = "delivered"
	StatusRead      StatusKind = "read"
	StatusFailed    StatusKind = "failed"
	StatusDeleted   StatusKind = "deleted"
)

// StatusCallback is a parsed delivery receipt. Unknown status strings are kept verbatim.
type StatusCallback struct {
	MessageID    string        `json:"id" bson:"message_id"`
	Status       StatusKind    `json:"status" bson:"status"`
	RecipientID  string        `json:"recipient_id" bson:"recipient_id"`
	Timestamp    int64         `json:"timestamp" bson:"timestamp"`
	Conversation *Conversation `json:"conversation,omitempty" bson:"conversation,omitempty"`
	Pricing      *Pricing      `json:"pricing,omitempty" bson:"pricing,omitempty"`
	Errors       []ErrorDetail `json:"errors,omitempty" bson:"errors,omitempty"`
}

// Failed reports whether the callback must be treated as a delivery failure.
func (s StatusCallback) Failed() bool {
	return s.Status == StatusFailed || len(s.Errors) > 0
}

// Time converts the epoch-seconds timestamp. The zero time is returned when it is missing.
func (s StatusCallback) Time() time.Time {
	if s.Timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(s.Timestamp, 0).UTC()
}

// ISOTimestamp renders Time as RFC 3339, or "" when the timestamp is missing.
func (s StatusCallback) ISOTimestamp() string {
	t := s.Time()
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// MessageKind says where the user's selection lives in an inbound message.
type MessageKind string

const (
	KindText                   MessageKind = "text"
	KindButtonQuickReply       MessageKind = "button_quick_reply"
	KindInteractiveButtonReply MessageKind = "interactive_button_reply"
	KindOther                  MessageKind = "other"
)

// InboundMessage is a parsed user message. Exactly one selection source is set:
// TextBody for KindText, ButtonText for quick replies, ButtonText and/or ButtonID for
// interactive replies, none for KindOther.
type InboundMessage struct {
	MessageID  string
	SenderID   string
	Type       string
	Kind       MessageKind
	TextBody   string
	ButtonText string
	ButtonID   string
}

// Preview returns a short human readable description used in logs.
func (m InboundMessage) Preview() string {
	switch {
	case m.TextBody != "":
		return m.TextBody
	case m.ButtonText != "":
		return m.ButtonText
	case m.ButtonID != "":
		return m.ButtonID
	case m.Type != "":
		return m.Type
	default:
		return "(no text)"
	}
}

// ParseWebhookEvent classifies a POSTed webhook body by looking at entry[0].changes[0].value.
// It always returns an event; the error is non-nil only when the body is not valid JSON for
// the payload shape, in which case the event is an UnrecognizedEvent.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	payload, err := decodePayload(body)
	if err != nil {
		return UnrecognizedEvent{Reason: "malformed payload"}, err
	}

	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return UnrecognizedEvent{Reason: "no changes"}, nil
	}

	value := payload.Entry[0].Changes[0].Value

	if len(value.Statuses) > 0 {
		return StatusEvent{Statuses: convertStatuses(value.Statuses)}, nil
	}

	if len(value.Messages) > 0 && value.Messages[0].From != "" {
		return MessageEvent{Message: NewInboundMessage(value.Messages[0])}, nil
	}

	return UnrecognizedEvent{Reason: "no actionable content"}, nil
}

// ParseDeliveryReport walks every entry and change of a webhook body and collects all
// statuses and inbound messages it carries.
func ParseDeliveryReport(body []byte) ([]StatusCallback, []InboundMessage, error) {
	payload, err := decodePayload(body)
	if err != nil {
		return nil, nil, err
	}

	var (
		statuses []StatusCallback
		messages []InboundMessage
	)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			statuses = append(statuses, convertStatuses(change.Value.Statuses)...)
			for _, msg := range change.Value.Messages {
				messages = append(messages, NewInboundMessage(msg))
			}
		}
	}

	return statuses, messages, nil
}

// NewInboundMessage picks the selection source of a wire message using the priority
// quick-reply button text, interactive label, interactive id, free text.
func NewInboundMessage(msg WireMessage) InboundMessage {
	in := InboundMessage{
		MessageID: msg.ID,
		SenderID:  msg.From,
		Type:      msg.Type,
		Kind:      KindOther,
	}

	if msg.Button != nil && msg.Button.Text != "" {
		in.Kind = KindButtonQuickReply
		in.ButtonText = msg.Button.Text
		return in
	}

	if msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
		br := msg.Interactive.ButtonReply
		label := br.Text
		if label == "" {
			label = br.Title
		}
		if label != "" || br.ID != "" {
			in.Kind = KindInteractiveButtonReply
			in.ButtonText = label
			in.ButtonID = br.ID
			return in
		}
	}

	if msg.Text != nil && msg.Text.Body != "" {
		in.Kind = KindText
		in.TextBody = msg.Text.Body
	}

	return in
}

func decodePayload(body []byte) (WebhookPayload, error) {
	var payload WebhookPayload
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	return payload, nil
}

func convertStatuses(wire []WireStatus) []StatusCallback {
	if len(wire) == 0 {
		return nil
	}

	out := make([]StatusCallback, 0, len(wire))
	for _, ws := range wire {
		ts, _ := strconv.ParseInt(ws.Timestamp, 10, 64)
		out = append(out, StatusCallback{
			MessageID:    ws.ID,
			Status:       StatusKind(ws.Status),
			RecipientID:  ws.RecipientID,
			Timestamp:    ts,
			Conversation: ws.Conversation,
			Pricing:      ws.Pricing,
			Errors:       ws.Errors,
		})
	}
	return out
}
