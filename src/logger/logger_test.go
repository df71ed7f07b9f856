package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed(redact bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return FromZap(zap.New(core), redact), logs
}

func TestRedactsCredentialKeys(t *testing.T) {
	l, logs := observed(true)
	l.Info("configured", "bot_token", "123:abc", "GEMINI_API_KEY", "k", "provider", "gemini")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["bot_token"] != redacted || fields["GEMINI_API_KEY"] != redacted {
		t.Fatalf("credentials were not redacted: %v", fields)
	}
	if fields["provider"] != "gemini" {
		t.Fatalf("unexpected provider field: %v", fields["provider"])
	}
}

func TestRedactionCanBeDisabled(t *testing.T) {
	l, logs := observed(false)
	l.Warn("raw", "token", "visible")
	if got := logs.All()[0].ContextMap()["token"]; got != "visible" {
		t.Fatalf("expected raw value, got %v", got)
	}
}

func TestWithKeepsRedaction(t *testing.T) {
	l, logs := observed(true)
	l.With("secret", "s").Error("failed", "attempt", 2)
	fields := logs.All()[0].ContextMap()
	if fields["secret"] != redacted {
		t.Fatalf("expected secret to be redacted, got %v", fields["secret"])
	}
	if fields["attempt"] != int64(2) {
		t.Fatalf("unexpected attempt field: %#v", fields["attempt"])
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Info("nothing", "k", "v")
}
