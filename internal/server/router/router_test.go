package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	"github.com/mamadbah2/eurocam-webhook/internal/server/handlers"
	service "github.com/mamadbah2/eurocam-webhook/internal/service/whatsapp"
	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

type countingSender struct {
	texts, templates atomic.Int32
	fail             bool
}

func (s *countingSender) SendText(context.Context, string, string) models.SendResult {
	s.texts.Add(1)
	return models.SendResult{Succeeded: !s.fail, HTTPStatus: http.StatusOK}
}

func (s *countingSender) SendTemplate(context.Context, string, string, string) models.SendResult {
	s.templates.Add(1)
	return models.SendResult{Succeeded: !s.fail, HTTPStatus: http.StatusOK}
}

type panickingService struct{}

func (panickingService) Dispatch(context.Context, models.WebhookEvent) models.Acknowledgement {
	panic("boom")
}
func (panickingService) ObserveDeliveryReport(context.Context, []byte) { panic("boom") }
func (panickingService) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

type fakeRelay struct {
	got client.ForwardRequest
	err error
}

func (f *fakeRelay) Forward(_ context.Context, req client.ForwardRequest) (*client.ForwardResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &client.ForwardResponse{StatusCode: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"id":"1"}`)}, nil
}

func newTestRouter(t *testing.T, sender *countingSender, relay handlers.Relay) http.Handler {
	t.Helper()
	cfg := config.WhatsAppConfig{
		VerifyToken:      "eurocam123",
		TemplateName:     "respuesta_automatica_eurocam",
		TemplateLanguage: "es",
	}
	svc := service.NewMetaWhatsAppService(cfg, sender, nil)
	var proxy *handlers.ProxyHandler
	if relay != nil {
		proxy = handlers.NewProxyHandler(relay, nil)
	}
	return New(handlers.NewWebhookHandler(svc, nil), proxy, nil)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const ventasBody = `{"entry":[{"changes":[{"value":{"messages":[{"from":"5491111111111","id":"wamid.1","type":"text","text":{"body":"Quiero info de Ventas"}}]}}]}]}`

func TestVerifyHandshake(t *testing.T) {
	h := newTestRouter(t, &countingSender{}, nil)

	for _, path := range []string{"/webhook", "/wa-status"} {
		rec := do(h, http.MethodGet, path+"?hub.mode=subscribe&hub.verify_token=eurocam123&hub.challenge=12345", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "12345" {
			t.Fatalf("%s: got %d %q", path, rec.Code, rec.Body.String())
		}

		rec = do(h, http.MethodGet, path+"?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: wrong token got %d", path, rec.Code)
		}
	}
}

func TestReceiveVentasText(t *testing.T) {
	sender := &countingSender{}
	h := newTestRouter(t, sender, nil)

	rec := do(h, http.MethodPost, "/webhook", ventasBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sender.texts.Load() != 1 || sender.templates.Load() != 0 {
		t.Fatalf("texts=%d templates=%d", sender.texts.Load(), sender.templates.Load())
	}
}

func TestReceiveMalformedBody(t *testing.T) {
	sender := &countingSender{}
	h := newTestRouter(t, sender, nil)

	for _, body := range []string{"", "{not json", `{"entry":[]}`} {
		rec := do(h, http.MethodPost, "/webhook", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
	}
	if sender.texts.Load()+sender.templates.Load() != 0 {
		t.Fatal("malformed bodies must not trigger sends")
	}
}

func TestStatusEndpointNeverSends(t *testing.T) {
	sender := &countingSender{}
	h := newTestRouter(t, sender, nil)

	rec := do(h, http.MethodPost, "/wa-status", ventasBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec = do(h, http.MethodPost, "/wa-status", "garbage"); rec.Code != http.StatusOK {
		t.Fatalf("malformed status = %d", rec.Code)
	}
	if sender.texts.Load()+sender.templates.Load() != 0 {
		t.Fatal("status endpoint must never send")
	}
}

func TestUnsupportedMethodIsNotFound(t *testing.T) {
	h := newTestRouter(t, &countingSender{}, nil)
	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		if rec := do(h, method, "/webhook", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", method, rec.Code)
		}
	}
}

func TestWebhookPanicIsAcknowledged(t *testing.T) {
	h := New(handlers.NewWebhookHandler(panickingService{}, nil), nil, nil)

	if rec := do(h, http.MethodPost, "/webhook", ventasBody); rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/wa-status", ventasBody); rec.Code != http.StatusOK {
		t.Fatalf("wa-status status = %d", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	sender := &countingSender{}
	h := newTestRouter(t, sender, nil)

	if rec := do(h, http.MethodPost, "/send-message", `{"to":"549","message":"hola"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/send-message", `{"to":"549"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message: status = %d", rec.Code)
	}

	sender.fail = true
	if rec := do(h, http.MethodPost, "/send-message", `{"to":"549","message":"hola"}`); rec.Code != http.StatusBadGateway {
		t.Fatalf("failed send: status = %d", rec.Code)
	}
}

func TestProxyMirrorsUpstream(t *testing.T) {
	relay := &fakeRelay{}
	h := newTestRouter(t, &countingSender{}, relay)

	req := httptest.NewRequest(http.MethodPost, "/waba-proxy/v20.0/123/messages?fields=id", strings.NewReader(`{"a":1}`))
	req.Header.Set("Authorization", "Bearer caller")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated || rec.Body.String() != `{"id":"1"}` {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if relay.got.Path != "/v20.0/123/messages?fields=id" || relay.got.Authorization != "Bearer caller" || string(relay.got.Body) != `{"a":1}` {
		t.Fatalf("relay saw %+v", relay.got)
	}
}

func TestProxyFailure(t *testing.T) {
	h := newTestRouter(t, &countingSender{}, &fakeRelay{err: errors.New("dial tcp: refused")})

	rec := do(h, http.MethodGet, "/waba-proxy/me", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "proxy_failed") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, &countingSender{}, nil)
	if rec := do(h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := newTestRouter(t, &countingSender{}, nil)

	rec := do(h, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id must be minted")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
