package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kozaktomas/library-kiosk/internal/config"
)

func TestOpen_UnknownDriver(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	_, err := Open(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	if err == nil || !strings.Contains(err.Error(), `unknown store driver "oracle"`) {
		t.Errorf("Open() error = %v, want unknown store driver", err)
	}
}

func TestOpen_WrapsDriverError(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	boom := errors.New("boom")
	RegisterDriver("broken", func(ctx context.Context, cfg *config.Config) (RecordStore, error) {
		return nil, boom
	})

	_, err := Open(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "broken"}})
	if !errors.Is(err, boom) {
		t.Errorf("Open() error = %v, want wrapped boom", err)
	}
	if got := Drivers(); len(got) != 1 || got[0] != "broken" {
		t.Errorf("Drivers() = %v, want [broken]", got)
	}
}

func TestRegisterDriver_NilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil open func")
		}
	}()
	RegisterDriver("nil", nil)
}
