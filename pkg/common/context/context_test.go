package context

import (
	"context"
	"testing"
	"time"
)

func TestIsCanceled(t *testing.T) {
	if IsCanceled(context.Background()) {
		t.Error("background context should not be canceled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !IsCanceled(ctx) {
		t.Error("canceled context should be reported as canceled")
	}
}

func TestIsTimedOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if IsTimedOut(ctx) {
		t.Error("explicit cancel is not a timeout")
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if !IsTimedOut(ctx) {
		t.Error("expired context should be reported as timed out")
	}
}
