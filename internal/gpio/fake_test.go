package gpio

import (
	"errors"
	"testing"
)

func TestFakeChipClaimAndRelease(t *testing.T) {
	f := NewFakeChip(4)

	out, err := f.Claim(2, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner, ok := f.Claimed(2); !ok || owner != "test" {
		t.Errorf("expected line 2 claimed by test, got (%q, %v)", owner, ok)
	}

	if _, err := f.Claim(2, "other"); !errors.Is(err, ErrResourceBusy) {
		t.Errorf("second claim: expected ErrResourceBusy, got %v", err)
	}

	if err := out.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := f.Claimed(2); ok {
		t.Error("line 2 should be free after release")
	}
	if err := out.Release(); err == nil {
		t.Error("expected error on double release")
	}
	if f.ClaimCalls != 2 {
		t.Errorf("ClaimCalls: got %d, want 2", f.ClaimCalls)
	}
}

func TestFakeChipHog(t *testing.T) {
	f := NewFakeChip(4)
	f.Hogs = map[int]string{1: "camera"}

	if _, err := f.Claim(1, "test"); !errors.Is(err, ErrResourceBusy) {
		t.Errorf("expected ErrResourceBusy, got %v", err)
	}
}

func TestFakeChipOutOfRange(t *testing.T) {
	f := NewFakeChip(4)

	if _, err := f.Claim(4, "test"); !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("expected ErrResourceUnavailable, got %v", err)
	}
}

func TestFakeOutputLevels(t *testing.T) {
	f := NewFakeChip(4)
	out, _ := f.Claim(0, "test")

	if err := out.SetValue(1); err == nil {
		t.Error("expected error setting a line not configured as output")
	}

	if err := out.Configure(0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if !f.IsOutput(0) {
		t.Error("line 0 should be an output")
	}
	if err := out.SetValue(1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if f.Level(0) != 1 {
		t.Errorf("level: got %d, want 1", f.Level(0))
	}
}

func TestFakeChipClose(t *testing.T) {
	f := NewFakeChip(1)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
