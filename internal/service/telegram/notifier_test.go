package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	"ChochScan/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func sampleSignal() models.Signal {
	return models.Signal{
		Symbol:     "BTCUSDT",
		Timeframe:  "25m",
		Direction:  models.DirectionUp,
		Group:      models.GroupG1,
		Price:      64123.5,
		SignalTime: time.Date(2025, 11, 2, 14, 35, 0, 0, time.UTC),
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(sampleSignal())
	for _, want := range []string{"CHoCH Up", "BTCUSDT", "25m", "Group: G1", "64123.5", "2025-11-02 14:35", "tradingview.com/chart/?symbol=BINANCE:BTCUSDT"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	down := sampleSignal()
	down.Direction = models.DirectionDown
	down.Group = models.GroupNone
	msg = FormatMessage(down)
	if !strings.Contains(msg, "CHoCH Down") || !strings.Contains(msg, "Group: N/A") {
		t.Errorf("down message wrong:\n%s", msg)
	}
}

func TestNotifySendsToBotAPI(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	n := New("token123", "-100777", testLogger(t), WithBaseURL(srv.URL))
	if err := n.Notify(context.Background(), sampleSignal()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotPath != "/bottoken123/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "-100777" {
		t.Fatalf("chat_id = %v", gotBody["chat_id"])
	}
	if text, _ := gotBody["text"].(string); !strings.Contains(text, "BTCUSDT") {
		t.Fatalf("text = %q", text)
	}
}

func TestNotifyRejectedByAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	n := New("token123", "nope", testLogger(t), WithBaseURL(srv.URL))
	err := n.Notify(context.Background(), sampleSignal())
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}
