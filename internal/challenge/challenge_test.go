package challenge_test

import (
	"fmt"
	"testing"

	"github.com/starkeep/starkeep/internal/challenge"
	"go.uber.org/zap"
)

// stubVerifier returns a fixed verdict, or panics when told to.
type stubVerifier struct {
	verdict bool
	panics  bool
}

func (s stubVerifier) Verify(_, _, _ string) bool {
	if s.panics {
		panic("verifier blew up")
	}
	return s.verdict
}

func newSvc(now int64, v challenge.Verifier) *challenge.Service {
	return challenge.NewService(v, func() int64 { return now }, zap.NewNop())
}

func TestIssue_tokenFormat(t *testing.T) {
	svc := newSvc(1000, stubVerifier{})

	token := svc.Issue("0xW1")
	want := "0xW1:1000:" + challenge.Marker
	if token != want {
		t.Errorf("token: got %q, want %q", token, want)
	}
}

func TestParse_roundTrip(t *testing.T) {
	svc := newSvc(1234, stubVerifier{})
	token := svc.Issue("0xW1")

	addr, issuedAt, err := challenge.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "0xW1" || issuedAt != 1234 {
		t.Errorf("parsed (%q, %d), want (0xW1, 1234)", addr, issuedAt)
	}
}

func TestParse_rejectsMalformedTokens(t *testing.T) {
	bad := []string{
		"",
		"0xW1",
		"0xW1:1000",
		"0xW1:1000:wrongMarker",
		"0xW1:notanumber:" + challenge.Marker,
		"0xW1:1000:" + challenge.Marker + ":extra",
	}
	for _, token := range bad {
		if _, _, err := challenge.Parse(token); err == nil {
			t.Errorf("Parse(%q) must fail", token)
		}
	}
}

func TestCheckWindow(t *testing.T) {
	cases := []struct {
		name     string
		issuedAt int64
		now      int64
		want     bool
	}{
		{"fresh", 1000, 1000, true},
		{"within window", 1000, 1100, true},
		{"exactly at window edge", 1000, 1300, true},
		{"one second past", 1000, 1301, false},
		{"long expired", 1000, 9000, false},
		{"future timestamp accepted (clock skew)", 1100, 1000, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issuer := newSvc(tc.issuedAt, stubVerifier{})
			token := issuer.Issue("0xW1")

			redeemer := newSvc(tc.now, stubVerifier{})
			if got := redeemer.CheckWindow(token); got != tc.want {
				t.Errorf("CheckWindow at now=%d: got %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestCheckWindow_malformedTokenFails(t *testing.T) {
	svc := newSvc(1000, stubVerifier{})
	if svc.CheckWindow("garbage") {
		t.Error("malformed token must fail the window check")
	}
}

func TestCheckSignature_delegates(t *testing.T) {
	ok := newSvc(0, stubVerifier{verdict: true})
	if !ok.CheckSignature("token", "0xW1", "sig") {
		t.Error("accepting verifier: want true")
	}

	bad := newSvc(0, stubVerifier{verdict: false})
	if bad.CheckSignature("token", "0xW1", "sig") {
		t.Error("rejecting verifier: want false")
	}
}

func TestCheckSignature_panicBecomesFalse(t *testing.T) {
	svc := newSvc(0, stubVerifier{panics: true})
	if svc.CheckSignature("token", "0xW1", "sig") {
		t.Error("a panicking verifier must count as verification failure")
	}
}

func TestReplayGuard_singleUse(t *testing.T) {
	g := challenge.NewReplayGuard(func() int64 { return 1000 })

	if !g.Consume("0xW1:1000:starRegistry", 1000) {
		t.Fatal("first consumption must succeed")
	}
	if g.Consume("0xW1:1000:starRegistry", 1000) {
		t.Error("second consumption must be rejected")
	}
	if !g.Consume("0xW2:1000:starRegistry", 1000) {
		t.Error("a different token must be consumable")
	}
}

func TestReplayGuard_pruneDropsLapsedEntries(t *testing.T) {
	now := int64(1000)
	g := challenge.NewReplayGuard(func() int64 { return now })

	for i := 0; i < 3; i++ {
		g.Consume(fmt.Sprintf("0xW1:%d:starRegistry", 1000+int64(i)), 1000+int64(i))
	}

	now = 1200
	if n := g.Prune(); n != 0 {
		t.Errorf("nothing lapsed yet, pruned %d", n)
	}

	now = 1400 // all three issuance times are now past the window
	if n := g.Prune(); n != 3 {
		t.Errorf("pruned %d entries, want 3", n)
	}
}
