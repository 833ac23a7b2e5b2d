package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := New("debug", format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !log.Core().Enabled(zap.DebugLevel) {
			t.Fatalf("%s: debug should be enabled", format)
		}
	}
	log, err := New("bogus", "json")
	if err != nil {
		t.Fatalf("bogus level: %v", err)
	}
	if log.Core().Enabled(zap.WarnLevel) || !log.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("unknown level must fall back to error")
	}
}
