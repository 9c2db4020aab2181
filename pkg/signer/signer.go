// Package signer derives the per-request anti-tamper headers the API gateway
// expects from the mobile client.
//
// The scheme has no secret: it mixes the current millisecond timestamp with
// two random digits and an arithmetic checksum. It exists for wire
// compatibility with the gateway and is not an authentication mechanism.
package signer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names sent on every gateway request.
const (
	HeaderClient    = "X-apmb"
	HeaderToken     = "X-ipac"
	HeaderChecksum  = "X-iptc"
	HeaderTimestamp = "X-ipts"

	// ClientMarker tells the gateway the call comes from the native app.
	ClientMarker = "version"
)

// Ranges of the random components.
const (
	MinRnd  = 3
	MaxRnd  = 9
	MinBase = 11
	MaxBase = 19

	checksumWidth = 4
)

// ErrMalformed is returned by Decode when header values do not follow the scheme.
var ErrMalformed = errors.New("signer: malformed checksum headers")

// Checksum is one signed pair: TS goes in X-ipts, CS in X-iptc.
type Checksum struct {
	TS string
	CS string
}

// Signer computes checksums. The zero value is not usable; call New.
type Signer struct {
	now  func() time.Time
	intn func(lo, hi int) int
}

// Option customizes a Signer.
type Option func(*Signer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithRand overrides the inclusive random integer source.
func WithRand(intn func(lo, hi int) int) Option {
	return func(s *Signer) { s.intn = intn }
}

// New returns a Signer using the wall clock and math/rand/v2.
func New(opts ...Option) *Signer {
	s := &Signer{now: time.Now, intn: randInclusive}
	for _, o := range opts {
		o(s)
	}
	return s
}

func randInclusive(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

// Sign returns a fresh checksum with a random base.
func (s *Signer) Sign() Checksum {
	return s.SignWithBase(0)
}

// SignWithBase returns a checksum using base, or a random base in
// [MinBase, MaxBase] when base is 0.
//
// It panics if base³ does not exceed MaxRnd², whatever rnd is drawn: such a
// base could yield a negative checksum, whose padding the gateway does not
// define, and can only come from a programming error.
func (s *Signer) SignWithBase(base int) Checksum {
	if base != 0 && base*base*base <= MaxRnd*MaxRnd {
		panic(fmt.Sprintf("signer: base %d too small for rnd up to %d", base, MaxRnd))
	}
	rnd := s.intn(MinRnd, MaxRnd)
	if base == 0 {
		base = s.intn(MinBase, MaxBase)
	}
	chk := base*base*base - rnd*rnd

	t := strconv.FormatInt(s.now().UnixMilli(), 10)
	return Checksum{
		TS: t[:len(t)-3] + strconv.Itoa(rnd) + strconv.Itoa(base),
		CS: t[:len(t)-4] + padChecksum(chk),
	}
}

// padChecksum left-pads the decimal text of chk with zeros to four
// characters. A minus sign counts toward the width.
func padChecksum(chk int) string {
	s := strconv.Itoa(chk)
	if len(s) >= checksumWidth {
		return s
	}
	return strings.Repeat("0", checksumWidth-len(s)) + s
}

// Headers returns the four signing headers for token, which may be empty.
func (s *Signer) Headers(token string) http.Header {
	c := s.Sign()
	h := make(http.Header, 4)
	h.Set(HeaderClient, ClientMarker)
	h.Set(HeaderToken, token)
	h.Set(HeaderChecksum, c.CS)
	h.Set(HeaderTimestamp, c.TS)
	return h
}

// Parts are the values embedded in a checksum pair.
type Parts struct {
	Rnd    int
	Base   int
	Chk    int
	Prefix string // shared millisecond prefix
}

// Decode extracts rnd, base and chk from a header pair and verifies that
// chk equals base³ − rnd².
func Decode(ts, cs string) (Parts, error) {
	if len(ts) < 4 || len(cs) < checksumWidth+1 {
		return Parts{}, ErrMalformed
	}
	rnd, err := strconv.Atoi(ts[len(ts)-3 : len(ts)-2])
	if err != nil {
		return Parts{}, fmt.Errorf("%w: rnd: %v", ErrMalformed, err)
	}
	base, err := strconv.Atoi(ts[len(ts)-2:])
	if err != nil {
		return Parts{}, fmt.Errorf("%w: base: %v", ErrMalformed, err)
	}
	chk, err := strconv.Atoi(cs[len(cs)-checksumWidth:])
	if err != nil {
		return Parts{}, fmt.Errorf("%w: chk: %v", ErrMalformed, err)
	}
	prefix := cs[:len(cs)-checksumWidth]
	if !strings.HasPrefix(ts, prefix) {
		return Parts{}, fmt.Errorf("%w: timestamp prefix mismatch", ErrMalformed)
	}
	if chk != base*base*base-rnd*rnd {
		return Parts{}, fmt.Errorf("%w: checksum %d does not match base %d rnd %d", ErrMalformed, chk, base, rnd)
	}
	return Parts{Rnd: rnd, Base: base, Chk: chk, Prefix: prefix}, nil
}
