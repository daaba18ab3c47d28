package whatsapp

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
)

const (
	tagStatusCallback  = "STATUS_CALLBACK"
	tagStatusError     = "STATUS_ERROR"
	tagStatusErrorData = "STATUS_ERROR_DATA"
	tagWAStatus        = "WA_STATUS"
	tagWAInbound       = "WA_INBOUND"
)

// logStatuses records delivery receipts. It never sends anything.
func (s *MetaWhatsAppService) logStatuses(ctx context.Context, statuses []models.StatusCallback, tag string) {
	for _, st := range statuses {
		fields := []zap.Field{
			zap.String("tag", tag),
			zap.String("message_id", st.MessageID),
			zap.String("status", string(st.Status)),
			zap.String("recipient_id", st.RecipientID),
			zap.Int64("timestamp", st.Timestamp),
			zap.String("time", st.ISOTimestamp()),
		}
		if st.Conversation != nil {
			fields = append(fields, zap.Any("conversation", st.Conversation))
		}
		if st.Pricing != nil {
			fields = append(fields, zap.Any("pricing", st.Pricing))
		}

		if !st.Failed() {
			s.logger.Info("status callback", fields...)
			continue
		}

		s.activity.RecordFailedStatus()
		s.logger.Error("status callback failed", append(fields, zap.Any("errors", st.Errors))...)

		for _, e := range st.Errors {
			s.logger.Error("status error",
				zap.String("tag", tagStatusError),
				zap.String("message_id", st.MessageID),
				zap.Int("code", e.Code),
				zap.String("title", e.Title),
				zap.String("message", e.Message),
				zap.String("href", e.Href))

			if e.ErrorData != nil {
				s.logger.Error("status error data",
					zap.String("tag", tagStatusErrorData),
					zap.String("message_id", st.MessageID),
					zap.Int("code", e.Code),
					zap.String("details", e.ErrorData.Details),
					zap.Any("error_data", e.ErrorData.Fields))
			}
		}
	}

	s.archiveStatuses(ctx, statuses)
}

func (s *MetaWhatsAppService) archiveStatuses(ctx context.Context, statuses []models.StatusCallback) {
	if s.archive == nil || len(statuses) == 0 {
		return
	}

	actx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	if err := s.archive.SaveStatusCallbacks(actx, statuses); err != nil {
		s.logger.Warn("failed to archive status callbacks", zap.Error(err), zap.Int("count", len(statuses)))
	}
}

// ObserveDeliveryReport logs every status and inbound message found anywhere in a webhook
// body. It backs the status-only endpoint and never replies.
func (s *MetaWhatsAppService) ObserveDeliveryReport(ctx context.Context, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("delivery report processing panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	statuses, messages, err := models.ParseDeliveryReport(body)
	if err != nil {
		s.logger.Warn("invalid delivery report payload", zap.Error(err))
		return
	}

	s.logStatuses(context.WithoutCancel(ctx), statuses, tagWAStatus)

	for _, m := range messages {
		s.logger.Info("inbound message",
			zap.String("tag", tagWAInbound),
			zap.String("from", m.SenderID),
			zap.String("type", m.Type),
			zap.String("text", m.TextBody))
	}
}
