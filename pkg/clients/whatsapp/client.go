package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
)

// ErrNotConfigured is returned when the access token or phone number id is missing.
var ErrNotConfigured = errors.New("whatsapp client not configured: access token and phone number id are required")

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error)
	SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error)
	Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	relayClient   *resty.Client
	phoneNumberID string
	accessToken   string
	debug         string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.RequestTimeout)
	if cfg.AccessToken != "" {
		restyClient.SetAuthToken(cfg.AccessToken)
	}

	relay := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.RequestTimeout)

	return &APIClient{
		httpClient:    restyClient,
		relayClient:   relay,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		debug:         cfg.GraphDebug,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTemplateMessageRequest references an approved template by name and language.
type SendTemplateMessageRequest struct {
	To           string
	TemplateName string
	LanguageCode string
}

// MessagePayload is the JSON body posted to /{phone-number-id}/messages.
type MessagePayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *TextPayload     `json:"text,omitempty"`
	Template         *TemplatePayload `json:"template,omitempty"`
}

// TextPayload is the text object of a text message.
type TextPayload struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

// TemplatePayload is the template object of a template message.
type TemplatePayload struct {
	Name     string           `json:"name"`
	Language TemplateLanguage `json:"language"`
}

// TemplateLanguage selects the template translation.
type TemplateLanguage struct {
	Code string `json:"code"`
}

// SendMessageResponse mirrors the successful response from Meta.
type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`

	StatusCode int    `json:"-"`
	RawBody    string `json:"-"`
}

// MessageID returns the wamid of the first accepted message, if any.
func (r *SendMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// apiError represents a WhatsApp Cloud API error payload.
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorData    any    `json:"error_data"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// APIError is returned when Meta answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	RawBody    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d, code=%d, message=%s", e.StatusCode, e.Code, e.Message)
}

// SendTextMessage posts a free-form text message.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error) {
	return c.send(ctx, NewTextPayload(req))
}

// SendTemplateMessage posts a pre-approved template message.
func (c *APIClient) SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error) {
	return c.send(ctx, NewTemplatePayload(req))
}

// NewTextPayload builds the JSON body of a text message.
func NewTextPayload(req SendTextMessageRequest) MessagePayload {
	return MessagePayload{
		MessagingProduct: "whatsapp",
		To:               req.To,
		Type:             "text",
		Text:             &TextPayload{Body: req.Body, PreviewURL: req.PreviewURL},
	}
}

// NewTemplatePayload builds the JSON body of a template message.
func NewTemplatePayload(req SendTemplateMessageRequest) MessagePayload {
	return MessagePayload{
		MessagingProduct: "whatsapp",
		To:               req.To,
		Type:             "template",
		Template: &TemplatePayload{
			Name:     req.TemplateName,
			Language: TemplateLanguage{Code: req.LanguageCode},
		},
	}
}

func (c *APIClient) send(ctx context.Context, payload MessagePayload) (*SendMessageResponse, error) {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return nil, ErrNotConfigured
	}

	result := new(SendMessageResponse)
	apiErr := new(apiError)

	r := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr)
	if c.debug != "" {
		r.SetQueryParam("debug", c.debug)
	}

	resp, err := r.Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
			RawBody:    resp.String(),
		}
	}

	result.StatusCode = resp.StatusCode()
	result.RawBody = resp.String()
	return result, nil
}

// ForwardRequest is an arbitrary Graph API call relayed on behalf of a third party.
type ForwardRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// ForwardResponse is the unmodified upstream answer.
type ForwardResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward relays req to {base}/{path}. The configured token is used when the caller did
// not send an Authorization header.
func (c *APIClient) Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error) {
	auth := strings.TrimSpace(req.Authorization)
	if auth == "" && c.accessToken != "" {
		auth = "Bearer " + c.accessToken
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	r := c.relayClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType)
	if auth != "" {
		r.SetHeader("Authorization", auth)
	}
	if len(req.Body) > 0 && req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("forward %s %s: %w", req.Method, req.Path, err)
	}

	return &ForwardResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
