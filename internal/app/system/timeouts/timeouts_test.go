package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDefaults(t *testing.T) {
	Reset()
	if Ping() != DefaultPing || Short() != DefaultShort || Schema() != DefaultSchema {
		t.Errorf("defaults: got %+v", Current())
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	Reset()
	defer Reset()

	Configure(Config{Schema: 5 * time.Minute})
	if Schema() != 5*time.Minute {
		t.Errorf("Schema: got %v, want 5m", Schema())
	}
	if Ping() != DefaultPing {
		t.Errorf("Ping changed to %v", Ping())
	}
	if Short() != DefaultShort {
		t.Errorf("Short changed to %v", Short())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("Err: got %v, want DeadlineExceeded", ctx.Err())
	}
}
