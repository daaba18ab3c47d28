package models

import "time"

// ActivityReport aggregates webhook activity over a reporting window.
type ActivityReport struct {
	PeriodStart    time.Time               `bson:"period_start" json:"period_start"`
	PeriodEnd      time.Time               `bson:"period_end" json:"period_end"`
	Events         map[EventCategory]int64 `bson:"events" json:"events"`
	Decisions      map[ReplyDecision]int64 `bson:"decisions" json:"decisions"`
	TextSends      int64                   `bson:"text_sends" json:"text_sends"`
	TemplateSends  int64                   `bson:"template_sends" json:"template_sends"`
	SendFailures   int64                   `bson:"send_failures" json:"send_failures"`
	Fallbacks      int64                   `bson:"fallbacks" json:"fallbacks"`
	FailedStatuses int64                   `bson:"failed_statuses" json:"failed_statuses"`
	CreatedAt      time.Time               `bson:"created_at" json:"created_at"`
}
