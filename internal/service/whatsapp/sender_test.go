package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

func graphConfig(baseURL string) config.WhatsAppConfig {
	cfg := testWhatsAppConfig()
	cfg.BaseURL = baseURL
	cfg.APIVersion = "v20.0"
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func newGraphSender(cfg config.WhatsAppConfig) (*GraphSender, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGraphSender(client.NewClient(cfg), zap.New(core)), logs
}

func TestGraphSenderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.HBg"}]}`))
	}))
	defer srv.Close()

	sender, logs := newGraphSender(graphConfig(srv.URL))
	res := sender.SendText(context.Background(), "5491111111111", "hola")

	if !res.Succeeded || res.HTTPStatus != http.StatusOK || res.MessageID != "wamid.HBg" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if logs.FilterField(zap.String("tag", tagMetaRequest)).Len() != 1 {
		t.Error("request must be logged")
	}
	if logs.FilterField(zap.String("tag", tagMetaResponse)).Len() != 1 {
		t.Error("response must be logged")
	}
}

func TestGraphSenderRejectedTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"(#132001) Template name does not exist in the translation","code":132001}}`))
	}))
	defer srv.Close()

	sender, logs := newGraphSender(graphConfig(srv.URL))
	res := sender.SendTemplate(context.Background(), "549", "respuesta_automatica_eurocam", "es")

	if res.Succeeded {
		t.Fatal("expected failure")
	}
	if res.HTTPStatus != http.StatusBadRequest || res.RawBody == "" || res.Err == nil {
		t.Fatalf("failure detail missing: %+v", res)
	}
	rejected := logs.FilterMessage("outbound request rejected").All()
	if len(rejected) != 1 || rejected[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error log, got %+v", rejected)
	}
	if rejected[0].ContextMap()["body"] == "" {
		t.Error("response body must be logged")
	}
}

func TestGraphSenderMissingCredentials(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	cfg := graphConfig(srv.URL)
	cfg.AccessToken = ""
	sender, logs := newGraphSender(cfg)

	res := sender.SendText(context.Background(), "549", "hola")
	if res.Succeeded || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("no request must reach the provider without credentials")
	}
	if logs.FilterMessage("outbound request failed").Len() != 1 {
		t.Fatal("failure must be logged")
	}
}

func TestGraphSenderNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sender, _ := newGraphSender(graphConfig(url))
	res := sender.SendText(context.Background(), "549", "hola")
	if res.Succeeded || res.HTTPStatus != 0 || res.Err == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestImageScenarioAgainstGraph(t *testing.T) {
	var templates, texts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var payload client.MessagePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		switch payload.Type {
		case "template":
			atomic.AddInt32(&templates, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"template not approved","code":132015}}`))
		case "text":
			atomic.AddInt32(&texts, 1)
			w.Write([]byte(`{"messages":[{"id":"wamid.fallback"}]}`))
		}
	}))
	defer srv.Close()

	sender, _ := newGraphSender(graphConfig(srv.URL))
	svc, _ := newTestService(sender)

	ack := dispatchBody(t, svc, messageBody(`{"from":"5491111111111","type":"image","image":{"id":"m"}}`))
	if ack.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", ack.StatusCode)
	}
	gotTemplates, gotTexts := atomic.LoadInt32(&templates), atomic.LoadInt32(&texts)
	if gotTemplates != 1 || gotTexts != 1 {
		t.Fatalf("templates=%d texts=%d, want 1/1", gotTemplates, gotTexts)
	}
}
