package models

import "encoding/json"

// WebhookPayload mirrors the structure sent by Meta's WhatsApp Cloud API webhook callbacks.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one entry payload within the webhook body.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange captures the actual notification contents.
type WebhookChange struct {
	Value WebhookValue `json:"value"`
	Field string       `json:"field"`
}

// WebhookValue contains message metadata, contacts, message events and delivery statuses.
type WebhookValue struct {
	MessagingProduct string         `json:"messaging_product"`
	Metadata         Metadata       `json:"metadata"`
	Contacts         []Contact      `json:"contacts"`
	Messages         []WireMessage  `json:"messages"`
	Statuses         []WireStatus   `json:"statuses"`
	Errors           []WebhookError `json:"errors"`
}

// Metadata contains WhatsApp phone identifiers for the business account.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact represents the WhatsApp user initiating the conversation.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile contains the human-friendly contact name.
type ContactProfile struct {
	Name string `json:"name"`
}

// WireMessage aggregates the inbound WhatsApp message shapes we care about.
type WireMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextContent        `json:"text,omitempty"`
	Button      *QuickReplyButton   `json:"button,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
	Image       *MediaContent       `json:"image,omitempty"`
	Audio       *MediaContent       `json:"audio,omitempty"`
	Document    *MediaContent       `json:"document,omitempty"`
	Location    *LocationContent    `json:"location,omitempty"`
}

// TextContent contains text messages body.
type TextContent struct {
	Body string `json:"body"`
}

// QuickReplyButton is the payload of a pressed template quick-reply button.
type QuickReplyButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// InteractiveContent represents button/list replies.
type InteractiveContent struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

// ButtonReply models a pressed interactive button. Meta sends the label as title;
// some relays forward it as text.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// ListReply models a selected list item payload.
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MediaContent represents media attachments minimal metadata.
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Sha256   string `json:"sha256"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

// LocationContent is a shared location pin.
type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// WireStatus represents delivery/read receipts coming from WhatsApp.
type WireStatus struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Timestamp    string        `json:"timestamp"`
	RecipientID  string        `json:"recipient_id"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Pricing      *Pricing      `json:"pricing,omitempty"`
	Errors       []ErrorDetail `json:"errors,omitempty"`
}

// Conversation describes the billing conversation a status belongs to.
type Conversation struct {
	ID                  string              `json:"id" bson:"id"`
	ExpirationTimestamp string              `json:"expiration_timestamp,omitempty" bson:"expiration_timestamp,omitempty"`
	Origin              *ConversationOrigin `json:"origin,omitempty" bson:"origin,omitempty"`
}

// ConversationOrigin tells where the conversation was opened.
type ConversationOrigin struct {
	Type string `json:"type" bson:"type"`
}

// Pricing carries the billing information attached to a status.
type Pricing struct {
	Billable     bool   `json:"billable" bson:"billable"`
	PricingModel string `json:"pricing_model" bson:"pricing_model"`
	Category     string `json:"category" bson:"category"`
}

// ErrorDetail is one entry of a failed status errors list.
type ErrorDetail struct {
	Code      int        `json:"code" bson:"code"`
	Title     string     `json:"title" bson:"title"`
	Message   string     `json:"message,omitempty" bson:"message,omitempty"`
	Href      string     `json:"href,omitempty" bson:"href,omitempty"`
	ErrorData *ErrorData `json:"error_data,omitempty" bson:"error_data,omitempty"`
}

// ErrorData holds the structured detail Meta attaches to some errors (e.g. 131000).
// Fields keeps the whole object so keys other than details survive.
type ErrorData struct {
	Details string         `json:"details" bson:"details"`
	Fields  map[string]any `json:"-" bson:"fields,omitempty"`
}

// UnmarshalJSON accepts any JSON value. Non-object values are kept under "value".
func (d *ErrorData) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	fields, ok := v.(map[string]any)
	if !ok {
		fields = map[string]any{"value": v}
	}
	d.Fields = fields
	if details, ok := fields["details"].(string); ok {
		d.Details = details
	}
	return nil
}

// WebhookError exposes errors returned from Meta during webhook notifications.
type WebhookError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
