package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucasmaia/atende/internal/config"
)

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	adapter := New(config.WhatsAppConfig{
		Token:   "api-token",
		PhoneID: "123456",
		APIBase: ts.URL,
	})

	err := adapter.SendText(context.Background(), "+5511999990000", "Qual sabor?")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotPath != "/123456/messages" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer api-token" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody["to"] != "5511999990000" {
		t.Fatalf("destination must lose its plus prefix: %v", gotBody["to"])
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "Qual sabor?" {
		t.Fatalf("unexpected body: %v", gotBody["text"])
	}
}

func TestSendTextRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "bad token"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	adapter := New(config.WhatsAppConfig{PhoneID: "123456", APIBase: ts.URL})

	if err := adapter.SendText(context.Background(), "+5511999990000", "oi"); err == nil {
		t.Fatal("expected error on rejected send")
	}
}
