package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

type failingForwarder struct{}

func (failingForwarder) Forward(context.Context, client.ForwardRequest) (*client.ForwardResponse, error) {
	return nil, errors.New("connection refused")
}

func TestForwardRelaysThroughClient(t *testing.T) {
	var gotAuth, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	cfg := config.WhatsAppConfig{AccessToken: "configured", BaseURL: srv.URL, APIVersion: "v20.0", RequestTimeout: 5 * time.Second}
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(client.NewClient(cfg), zap.New(core))

	resp, err := svc.Forward(context.Background(), client.ForwardRequest{
		Method: http.MethodPost,
		Path:   "/v20.0/123/messages",
		Body:   []byte(`{"to":"549"}`),
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if resp.StatusCode != http.StatusTeapot || string(resp.Body) != `{"ok":false}` {
		t.Fatalf("response = %d %s", resp.StatusCode, resp.Body)
	}
	if gotAuth != "Bearer configured" || gotPath != "/v20.0/123/messages" || gotBody != `{"to":"549"}` {
		t.Fatalf("upstream saw auth=%q path=%q body=%q", gotAuth, gotPath, gotBody)
	}
	if logs.FilterField(zap.String("tag", tagProxy)).Len() != 2 {
		t.Fatal("request and response must both be logged")
	}
}

func TestForwardWrapsTransportError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(failingForwarder{}, zap.New(core))

	_, err := svc.Forward(context.Background(), client.ForwardRequest{
		Method: http.MethodPost,
		Path:   "1/messages",
		Body:   []byte(`{"to":"549"}`),
	})
	if err == nil {
		t.Fatal("expected error")
	}

	sent := logs.FilterMessage("proxy request").All()
	if len(sent) != 1 || bodyString(sent[0].ContextMap()["body"]) != `{"to":"549"}` {
		t.Fatalf("request body must be logged before forwarding, got %+v", sent)
	}
	if logs.FilterMessage("proxy request failed").Len() != 1 {
		t.Fatal("transport failure must be logged")
	}
}

func TestForwardLogsBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":131000}}`))
	}))
	defer srv.Close()

	cfg := config.WhatsAppConfig{BaseURL: srv.URL, APIVersion: "v20.0", RequestTimeout: 5 * time.Second}
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(client.NewClient(cfg), zap.New(core))

	_, err := svc.Forward(context.Background(), client.ForwardRequest{
		Method:      http.MethodPost,
		Path:        "1/messages",
		ContentType: "application/json",
		Body:        []byte(`{"to":"549"}`),
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	sent := logs.FilterMessage("proxy request").All()
	if len(sent) != 1 {
		t.Fatalf("expected one request log, got %d", len(sent))
	}
	if got := bodyString(sent[0].ContextMap()["body"]); got != `{"to":"549"}` {
		t.Errorf("request body = %q", got)
	}
	if sent[0].ContextMap()["content_type"] != "application/json" {
		t.Errorf("content type = %v", sent[0].ContextMap()["content_type"])
	}

	answered := logs.FilterMessage("proxy response").All()
	if len(answered) != 1 {
		t.Fatalf("expected one response log, got %d", len(answered))
	}
	if got := bodyString(answered[0].ContextMap()["body"]); got != `{"error":{"code":131000}}` {
		t.Errorf("response body = %q", got)
	}
	if answered[0].ContextMap()["status"] != int64(http.StatusBadRequest) {
		t.Errorf("status = %v", answered[0].ContextMap()["status"])
	}
}

func TestBodyFieldFallsBackToText(t *testing.T) {
	f := bodyField("body", []byte("not json"))
	if f.Type != zapcore.ByteStringType {
		t.Fatalf("field type = %v", f.Type)
	}
	if f = bodyField("body", []byte(`{"a":1}`)); f.Type != zapcore.ReflectType {
		t.Fatalf("field type = %v", f.Type)
	}
}

func bodyString(v any) string {
	switch b := v.(type) {
	case json.RawMessage:
		return string(b)
	case []byte:
		return string(b)
	case string:
		return b
	}
	return ""
}
