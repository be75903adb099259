package handler_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/starkeep/starkeep/internal/chain"
	"github.com/starkeep/starkeep/internal/challenge"
	"github.com/starkeep/starkeep/internal/registry/handler"
	"github.com/starkeep/starkeep/internal/registry/service"
	"github.com/starkeep/starkeep/internal/wallet"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) (*gin.Engine, *chain.MemoryLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	ledger := chain.New()
	challenges := challenge.NewService(wallet.Ed25519Verifier{}, nil, zap.NewNop())
	svc := service.NewRegistrationService(ledger, challenges, challenge.NewReplayGuard(nil), zap.NewNop())

	v1 := r.Group("/api/v1")
	handler.NewRegistrationHandler(svc, zap.NewNop()).Register(v1)
	handler.NewChainHandler(ledger, zap.NewNop()).Register(v1, nil)
	return r, ledger
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// requestChallenge drives POST /challenge and returns the issued token.
func requestChallenge(t *testing.T, router *gin.Engine, address string) string {
	t.Helper()
	w := postJSON(t, router, "/api/v1/challenge", gin.H{"address": address})
	if w.Code != http.StatusCreated {
		t.Fatalf("challenge: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Challenge
}

func newWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := wallet.NewKeypair()
	if err != nil {
		t.Fatal(err)
	}
	return wallet.Address(pub), priv
}

func TestRequestChallenge_201(t *testing.T) {
	router, _ := setupRouter(t)

	token := requestChallenge(t, router, "0xW1")
	if token == "" {
		t.Fatal("expected a challenge token")
	}
	if _, _, err := challenge.Parse(token); err != nil {
		t.Errorf("issued token must parse: %v", err)
	}
}

func TestRequestChallenge_400_missingAddress(t *testing.T) {
	router, _ := setupRouter(t)

	w := postJSON(t, router, "/api/v1/challenge", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitStar_201_appendsBlock(t *testing.T) {
	router, ledger := setupRouter(t)
	addr, priv := newWallet(t)

	token := requestChallenge(t, router, addr)

	w := postJSON(t, router, "/api/v1/stars", gin.H{
		"address":   addr,
		"challenge": token,
		"signature": wallet.Sign(priv, token),
		"star":      "Polaris",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var block chain.Block
	if err := json.Unmarshal(w.Body.Bytes(), &block); err != nil {
		t.Fatal(err)
	}
	if block.Height != 1 {
		t.Errorf("block height: got %d, want 1", block.Height)
	}

	stars, _ := ledger.StarsByOwner(context.Background(), addr)
	if len(stars) != 1 || stars[0] != "Polaris" {
		t.Errorf("stars: got %v, want [Polaris]", stars)
	}
}

func TestSubmitStar_410_expiredToken(t *testing.T) {
	router, _ := setupRouter(t)
	addr, priv := newWallet(t)

	// A token with an ancient embedded timestamp; well past the window.
	stale := addr + ":1000:" + challenge.Marker

	w := postJSON(t, router, "/api/v1/stars", gin.H{
		"address":   addr,
		"challenge": stale,
		"signature": wallet.Sign(priv, stale),
		"star":      "Polaris",
	})
	if w.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitStar_422_invalidSignature(t *testing.T) {
	router, _ := setupRouter(t)
	addr, _ := newWallet(t)
	_, otherPriv := newWallet(t)

	token := requestChallenge(t, router, addr)

	w := postJSON(t, router, "/api/v1/stars", gin.H{
		"address":   addr,
		"challenge": token,
		"signature": wallet.Sign(otherPriv, token),
		"star":      "Polaris",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitStar_409_replayedToken(t *testing.T) {
	router, _ := setupRouter(t)
	addr, priv := newWallet(t)

	token := requestChallenge(t, router, addr)
	body := gin.H{
		"address":   addr,
		"challenge": token,
		"signature": wallet.Sign(priv, token),
		"star":      "Polaris",
	}

	if w := postJSON(t, router, "/api/v1/stars", body); w.Code != http.StatusCreated {
		t.Fatalf("first submission: expected 201, got %d", w.Code)
	}
	if w := postJSON(t, router, "/api/v1/stars", body); w.Code != http.StatusConflict {
		t.Fatalf("replay: expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitStar_400_malformedToken(t *testing.T) {
	router, _ := setupRouter(t)
	addr, priv := newWallet(t)

	w := postJSON(t, router, "/api/v1/stars", gin.H{
		"address":   addr,
		"challenge": "garbage",
		"signature": wallet.Sign(priv, "garbage"),
		"star":      "Polaris",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
