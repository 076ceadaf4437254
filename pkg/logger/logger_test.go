package logger

import (
	"testing"

	"github.com/oumizumi/Kairo-sub002/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format %s: unexpected error: %v", format, err)
		}
		if l == nil {
			t.Fatalf("format %s: nil logger", format)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
