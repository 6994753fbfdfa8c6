package timeout

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRaceReturnsOperationResult(t *testing.T) {
	result, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	}, func(time.Duration) error {
		t.Fatalf("onTimeout should not be called")
		return nil
	})
	if err != nil {
		t.Fatalf("Race failed: %v", err)
	}
	if result.Bytes != 42 {
		t.Fatalf("bytes = %d, want 42", result.Bytes)
	}
	if result.Stop.Before(result.Start) {
		t.Fatalf("stop before start")
	}
}

func TestRaceReturnsOperationError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, wantErr
	}, func(time.Duration) error {
		t.Fatalf("onTimeout should not be called")
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRaceTimesOutWhenOperationBlocks(t *testing.T) {
	gotSignal := make(chan struct{})
	_, err := Race(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(gotSignal)
		return 0, ctx.Err()
	}, func(elapsed time.Duration) error {
		return errTimeout{elapsed}
	})

	select {
	case <-gotSignal:
	case <-time.After(time.Second):
		t.Fatalf("operation was never canceled")
	}

	var te errTimeout
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want errTimeout", err)
	}
}

func TestRaceHonorsLateDataAtDeadline(t *testing.T) {
	result, err := Race(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 7, nil
	}, func(time.Duration) error {
		return errors.New("should not surface: op produced data")
	})
	if err != nil {
		t.Fatalf("Race failed: %v", err)
	}
	if result.Bytes != 7 {
		t.Fatalf("bytes = %d, want 7 (late success should be honored)", result.Bytes)
	}
}

type errTimeout struct{ elapsed time.Duration }

func (e errTimeout) Error() string { return "timed out" }
