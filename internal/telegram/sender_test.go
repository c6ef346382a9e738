package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSend(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "123:abc", 100, nil)
	if err := c.Send(context.Background(), "4711", "<b>Neue Termine:</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if path != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", path)
	}
	if got.ChatID != "4711" || got.ParseMode != "HTML" || !got.DisableWebPagePreview {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Text != "<b>Neue Termine:</b>" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestClientSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123:abc", 100, nil)
	if err := c.Send(context.Background(), "4711", "hi"); err == nil {
		t.Fatal("expected error for blocked bot")
	}
}

func TestClientSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(base, "123:abc", 100, nil)
	err := c.Send(context.Background(), "4711", "hi")
	if err == nil {
		t.Fatal("expected error for unreachable api")
	}
	if strings.Contains(err.Error(), "123:abc") {
		t.Fatalf("error leaks the token: %v", err)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected the dial error to be wrapped, got %v", err)
	}
}

func TestLogSenderNeverFails(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), "4711", "hi"); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}
