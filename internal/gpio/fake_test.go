package gpio

import (
	"testing"
)

func TestFakePinsRead(t *testing.T) {
	f := NewFakePins(map[int][]bool{
		17: {false, true, true},
	})

	want := []bool{false, true, true, true}
	for i, w := range want {
		if got := f.ReadPin(17); got != w {
			t.Errorf("read %d: expected %v, got %v", i, w, got)
		}
	}

	if f.Reads[17] != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads[17])
	}
}

func TestFakePinsUnscriptedReadsLow(t *testing.T) {
	f := NewFakePins(nil)

	if f.ReadPin(5) {
		t.Error("unscripted pin should read low")
	}
}

func TestFakePinsWrites(t *testing.T) {
	f := NewFakePins(nil)

	f.WritePin(23, true)
	f.WritePin(24, true)
	f.WritePin(23, false)

	if len(f.Writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(f.Writes))
	}
	got := f.WritesTo(23)
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("writes to 23: expected [true false], got %v", got)
	}
}

func TestFakePinsClose(t *testing.T) {
	f := NewFakePins(nil)

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

func TestFakePinsReset(t *testing.T) {
	f := NewFakePins(map[int][]bool{1: {true, false}})

	f.ReadPin(1)
	f.WritePin(2, true)

	f.Reset()

	if !f.ReadPin(1) {
		t.Error("after reset: expected first sample again")
	}
	if len(f.Writes) != 0 {
		t.Errorf("after reset: expected no writes, got %d", len(f.Writes))
	}
}

func TestPulse(t *testing.T) {
	got := Pulse(2, 3)
	want := []bool{false, false, true, true, true, false}

	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
