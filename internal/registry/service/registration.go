// Package service orchestrates the ownership-proof workflow: challenge
// issuance, redemption checks, and block admission.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/starkeep/starkeep/internal/chain"
	"github.com/starkeep/starkeep/internal/challenge"
	"go.uber.org/zap"
)

// Sentinel errors for the registration flow. Every rejection is a typed
// result; nothing here is fatal to the process.
var (
	ErrMalformedToken   = errors.New("challenge token is malformed")
	ErrChallengeExpired = errors.New("challenge token is outside the redemption window; request a new one")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrTokenReplayed    = errors.New("challenge token was already redeemed")
)

// RegistrationService turns a signed ownership claim into a new block on the
// chain.
type RegistrationService struct {
	ledger     chain.Ledger
	challenges *challenge.Service
	replay     *challenge.ReplayGuard // nil disables single-use enforcement
	logger     *zap.Logger
}

// NewRegistrationService creates a RegistrationService. Pass nil for replay
// to allow a token to be redeemed repeatedly within its window.
func NewRegistrationService(
	ledger chain.Ledger,
	challenges *challenge.Service,
	replay *challenge.ReplayGuard,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		ledger:     ledger,
		challenges: challenges,
		replay:     replay,
		logger:     logger,
	}
}

// RequestChallenge issues a challenge token for the given wallet address. The
// caller must sign the token with the wallet's key and present both to
// Submit within the redemption window.
func (s *RegistrationService) RequestChallenge(_ context.Context, address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address must not be empty")
	}
	token := s.challenges.Issue(address)
	s.logger.Info("challenge issued", zap.String("address", address))
	return token, nil
}

// Submit validates a signed claim and appends it to the chain. The window
// check runs before the signature check: a token that is both expired and
// badly signed reports expiry. Every rejection happens upstream of Append.
func (s *RegistrationService) Submit(ctx context.Context, address, token, signature, star string) (*chain.Block, error) {
	embedded, issuedAt, err := challenge.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedToken, err.Error())
	}
	if embedded != address {
		return nil, fmt.Errorf("%w: token was issued for a different wallet", ErrMalformedToken)
	}

	if !s.challenges.CheckWindow(token) {
		return nil, ErrChallengeExpired
	}

	if !s.challenges.CheckSignature(token, address, signature) {
		s.logger.Info("submission rejected: bad signature", zap.String("address", address))
		return nil, ErrInvalidSignature
	}

	// Consume only after the signature check, so an attacker cannot burn
	// someone else's token with a garbage signature.
	if s.replay != nil && !s.replay.Consume(token, issuedAt) {
		return nil, ErrTokenReplayed
	}

	b, err := chain.NewClaimBlock(address, star)
	if err != nil {
		return nil, fmt.Errorf("build claim block: %w", err)
	}

	stored, err := s.ledger.Append(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("append block: %w", err)
	}

	s.logger.Info("star registered",
		zap.String("address", address),
		zap.String("star", star),
		zap.Int("height", stored.Height),
	)
	return stored, nil
}
