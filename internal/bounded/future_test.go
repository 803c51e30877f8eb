package bounded

import (
	"errors"
	"testing"
	"time"
)

func TestAwaitReturnsCompletedResult(t *testing.T) {
	fut := New(func() (int, error) { return 42, nil })
	v, err := fut.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestAwaitPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	fut := New(func() (int, error) { return 0, wantErr })
	_, err := fut.Await()
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestAwaitTimeoutExpires(t *testing.T) {
	fut := New(func() (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	_, _, ok := fut.AwaitTimeout(5 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout before completion")
	}
}

func TestAwaitTimeoutCompletesInTime(t *testing.T) {
	fut := New(func() (int, error) { return 7, nil })
	v, err, ok := fut.AwaitTimeout(100 * time.Millisecond)
	if !ok {
		t.Fatalf("expected completion within timeout")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestDoneClosesOnCompletion(t *testing.T) {
	fut := New(func() (int, error) { return 0, nil })
	select {
	case <-fut.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Done channel never closed")
	}
}
