package localization

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

func TestOrderExecutedDefaults(t *testing.T) {
	l := New(nil)
	title, body := l.OrderExecuted("en", model.SideBuy, model.ExecutionFull, "WAVES", "USDN")
	if title != "Order executed" {
		t.Fatalf("unexpected title %q", title)
	}
	if !strings.Contains(body, "buy") || !strings.Contains(body, "WAVES/USDN") {
		t.Fatalf("unexpected body %q", body)
	}

	title, _ = l.OrderExecuted("en", model.SideSell, model.ExecutionPartial, "WAVES", "USDN")
	if title != "Order partially executed" {
		t.Fatalf("unexpected partial title %q", title)
	}
}

func TestPriceThresholdBody(t *testing.T) {
	l := New(nil)
	_, body := l.PriceThreshold("en", "WAVES", "USDN", decimal.RequireFromString("2.5"))
	if !strings.Contains(body, "2.5") || !strings.Contains(body, "WAVES") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFallbackToEnglish(t *testing.T) {
	l := New(map[string]map[string]string{
		"ru": {"price_alert_title": "Ценовое уведомление"},
	})

	title, body := l.PriceThreshold("ru", "WAVES", "USDN", decimal.NewFromInt(100))
	if title != "Ценовое уведомление" {
		t.Fatalf("expected translated title, got %q", title)
	}
	// Body has no Russian translation and falls back to English.
	if !strings.Contains(body, "100") {
		t.Fatalf("expected fallback body, got %q", body)
	}

	title, _ = l.PriceThreshold("de", "WAVES", "USDN", decimal.NewFromInt(100))
	if title != "Price alert" {
		t.Fatalf("expected fallback title for unknown language, got %q", title)
	}
}
