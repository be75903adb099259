package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors mapped from API responses.
var (
	ErrNotFound         = errors.New("not found")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenReplayed    = errors.New("challenge token already redeemed")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Block mirrors the chain.Block wire representation.
type Block struct {
	Height    int    `json:"height"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash,omitempty"`
	Hash      string `json:"hash"`
}

// ChallengeResult holds the token returned by RequestChallenge.
type ChallengeResult struct {
	Address          string `json:"address"`
	Challenge        string `json:"challenge"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// Overview holds the chain height and tip hash.
type Overview struct {
	Height  int    `json:"height"`
	TipHash string `json:"tip_hash"`
}

// ValidationReport is the result of a full-chain integrity check.
type ValidationReport struct {
	Valid     bool    `json:"valid"`
	BadBlocks []Block `json:"bad_blocks"`
}

// Client is the Starkeep SDK entry point.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches a pre-obtained operator token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// New creates a Client for the registry at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestChallenge asks the registry for an ownership challenge token.
func (c *Client) RequestChallenge(ctx context.Context, address string) (*ChallengeResult, error) {
	var out ChallengeResult
	err := c.do(ctx, http.MethodPost, "/api/v1/challenge",
		map[string]string{"address": address}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitStar submits a signed ownership claim and returns the new block.
func (c *Client) SubmitStar(ctx context.Context, address, challenge, signature, star string) (*Block, error) {
	var out Block
	err := c.do(ctx, http.MethodPost, "/api/v1/stars", map[string]string{
		"address":   address,
		"challenge": challenge,
		"signature": signature,
		"star":      star,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChainOverview returns the chain height and tip hash.
func (c *Client) ChainOverview(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.do(ctx, http.MethodGet, "/api/v1/chain", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateChain runs a full-chain integrity check. When the endpoint is
// admin-guarded, configure the client with WithBearerToken first.
func (c *Client) ValidateChain(ctx context.Context) (*ValidationReport, error) {
	var out ValidationReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/chain/validate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockByHeight fetches a block by its height.
func (c *Client) BlockByHeight(ctx context.Context, height int) (*Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/api/v1/chain/blocks/height/"+strconv.Itoa(height), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockByHash fetches a block by its hash.
func (c *Client) BlockByHash(ctx context.Context, hash string) (*Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/api/v1/chain/blocks/hash/"+url.PathEscape(hash), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StarsByOwner lists the stars registered by a wallet, oldest first.
func (c *Client) StarsByOwner(ctx context.Context, address string) ([]string, error) {
	var out struct {
		Stars []string `json:"stars"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/owners/"+url.PathEscape(address)+"/stars", nil, &out); err != nil {
		return nil, err
	}
	return out.Stars, nil
}

// AdminToken exchanges the admin secret for an operator token.
func (c *Client) AdminToken(ctx context.Context, secret string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/token",
		map[string]string{"secret": secret}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// do performs one JSON round trip and maps error statuses to sentinels.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	apiMsg := decodeAPIError(resp.Body)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiMsg)
	case http.StatusGone:
		return fmt.Errorf("%w: %s", ErrChallengeExpired, apiMsg)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidSignature, apiMsg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrTokenReplayed, apiMsg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiMsg)
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiMsg)
	}
}

func decodeAPIError(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil {
		return "unreadable error body"
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(raw))
	}
	return payload.Error
}
