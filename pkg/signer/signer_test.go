package signer

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

var fixed = time.UnixMilli(1718031234567)

func fixedRand(rnd, base int) func(lo, hi int) int {
	return func(lo, _ int) int {
		if lo == MinRnd {
			return rnd
		}
		return base
	}
}

func TestSignKnownValues(t *testing.T) {
	s := New(WithClock(func() time.Time { return fixed }), WithRand(fixedRand(5, 12)))
	got := s.Sign()

	// chk = 12^3 - 5^2 = 1703
	if got.TS != "1718031234"+"5"+"12" {
		t.Errorf("TS = %q, want %q", got.TS, "1718031234512")
	}
	if got.CS != "171803123"+"1703" {
		t.Errorf("CS = %q, want %q", got.CS, "1718031231703")
	}
}

func TestSignAllPairs(t *testing.T) {
	millis := strconv.FormatInt(fixed.UnixMilli(), 10)
	for rnd := MinRnd; rnd <= MaxRnd; rnd++ {
		for base := MinBase; base <= MaxBase; base++ {
			s := New(WithClock(func() time.Time { return fixed }), WithRand(fixedRand(rnd, base)))
			c := s.Sign()

			chk := base*base*base - rnd*rnd
			padded := padChecksum(chk)
			if want := len(millis) - 3 + len(strconv.Itoa(rnd)) + len(strconv.Itoa(base)); len(c.TS) != want {
				t.Errorf("rnd=%d base=%d: len(TS) = %d, want %d", rnd, base, len(c.TS), want)
			}
			if want := len(millis) - 4 + len(padded); len(c.CS) != want {
				t.Errorf("rnd=%d base=%d: len(CS) = %d, want %d", rnd, base, len(c.CS), want)
			}

			parts, err := Decode(c.TS, c.CS)
			if err != nil {
				t.Fatalf("rnd=%d base=%d: Decode() error: %v", rnd, base, err)
			}
			if parts.Rnd != rnd || parts.Base != base || parts.Chk != chk {
				t.Errorf("Decode() = %+v, want rnd=%d base=%d chk=%d", parts, rnd, base, chk)
			}
		}
	}
}

func TestSignWithBaseUsesCallerBase(t *testing.T) {
	s := New(WithClock(func() time.Time { return fixed }), WithRand(fixedRand(3, 19)))
	c := s.SignWithBase(15)
	parts, err := Decode(c.TS, c.CS)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if parts.Base != 15 {
		t.Errorf("Base = %d, want 15", parts.Base)
	}
}

func TestSignWithBasePanicsOnSmallBase(t *testing.T) {
	// 4³ − 3² is positive, but 4³ − 9² is not: the base is rejected whatever
	// rnd would have been drawn.
	for _, base := range []int{2, 4} {
		drawn := false
		s := New(WithRand(func(lo, _ int) int { drawn = true; return lo }))
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("SignWithBase(%d) did not panic", base)
				}
			}()
			s.SignWithBase(base)
		}()
		if drawn {
			t.Errorf("SignWithBase(%d) drew rnd before rejecting the base", base)
		}
	}
}

func TestSignWithBaseSmallestSafeBase(t *testing.T) {
	s := New(WithClock(func() time.Time { return fixed }), WithRand(fixedRand(MaxRnd, 0)))
	c := s.SignWithBase(5)
	// chk = 5^3 - 9^2 = 44
	if c.CS != "171803123"+"0044" {
		t.Errorf("CS = %q, want %q", c.CS, "1718031230044")
	}
}

func TestPadChecksum(t *testing.T) {
	tests := []struct {
		chk  int
		want string
	}{
		{1250, "1250"},
		{6850, "6850"},
		{7, "0007"},
		{123, "0123"},
		{-81, "0-81"},
		{12345, "12345"},
	}
	for _, tt := range tests {
		if got := padChecksum(tt.chk); got != tt.want {
			t.Errorf("padChecksum(%d) = %q, want %q", tt.chk, got, tt.want)
		}
	}
}

func TestHeaders(t *testing.T) {
	s := New()
	h := s.Headers("abc")
	if got := h.Get(HeaderClient); got != ClientMarker {
		t.Errorf("%s = %q, want %q", HeaderClient, got, ClientMarker)
	}
	if got := h.Get(HeaderToken); got != "abc" {
		t.Errorf("%s = %q, want %q", HeaderToken, got, "abc")
	}
	if _, err := Decode(h.Get(HeaderTimestamp), h.Get(HeaderChecksum)); err != nil {
		t.Errorf("Decode(headers) error: %v", err)
	}

	empty := s.Headers("")
	if vals := empty.Values(HeaderToken); len(vals) != 1 || vals[0] != "" {
		t.Errorf("%s = %v, want present and empty", HeaderToken, vals)
	}
}

func TestRandomRanges(t *testing.T) {
	s := New()
	for i := 0; i < 500; i++ {
		c := s.Sign()
		parts, err := Decode(c.TS, c.CS)
		if err != nil {
			t.Fatalf("Decode() error: %v", err)
		}
		if parts.Rnd < MinRnd || parts.Rnd > MaxRnd {
			t.Fatalf("rnd %d out of range", parts.Rnd)
		}
		if parts.Base < MinBase || parts.Base > MaxBase {
			t.Fatalf("base %d out of range", parts.Base)
		}
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	s := New(WithClock(func() time.Time { return fixed }), WithRand(fixedRand(5, 12)))
	c := s.Sign()
	tampered := c.CS[:len(c.CS)-1] + "9"
	if _, err := Decode(c.TS, tampered); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode(tampered) error = %v, want ErrMalformed", err)
	}
	if _, err := Decode("12", "1"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode(short) error = %v, want ErrMalformed", err)
	}
}
