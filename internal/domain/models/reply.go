package models

// ReplyDecision is the closed set of automatic replies.
type ReplyDecision string

const (
	ReplyVentasInfo      ReplyDecision = "ventas_info"
	ReplyAdminInfo       ReplyDecision = "admin_info"
	ReplyGenericGreeting ReplyDecision = "generic_greeting"
)

// ReplyOutcome records how a reply ended up being delivered.
type ReplyOutcome string

const (
	OutcomeText             ReplyOutcome = "text"
	OutcomeTemplate         ReplyOutcome = "template"
	OutcomeTemplateFallback ReplyOutcome = "template_fallback_text"
	OutcomeFailed           ReplyOutcome = "failed"
)

// ReplyReport summarizes what the classifier did with one inbound message.
type ReplyReport struct {
	Message   InboundMessage
	Selection string
	Decision  ReplyDecision
	Outcome   ReplyOutcome
	Attempts  int
}

// Delivered reports whether any attempt succeeded.
func (r ReplyReport) Delivered() bool {
	return r.Outcome != OutcomeFailed
}

// SendResult is the outcome of one outbound Graph API call.
type SendResult struct {
	Succeeded  bool
	HTTPStatus int
	RawBody    string
	MessageID  string
	Err        error
}

// Acknowledgement is the HTTP answer owed to the webhook caller.
type Acknowledgement struct {
	StatusCode int
	Body       string
}
