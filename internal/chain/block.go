package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenesisData is the sentinel payload of the block at height 0. It is not a
// claim record; Claim returns absent for it.
const GenesisData = "Starkeep Genesis Block"

// Block is a single entry in the chain. Its linkage fields (Height,
// Timestamp, PrevHash, Hash) are set exactly once by the owning ledger;
// callers only ever supply Data.
type Block struct {
	Height    int    `json:"height"`
	Timestamp int64  `json:"timestamp"` // unix seconds; sub-second precision discarded
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash,omitempty"` // empty only at height 0
	Hash      string `json:"hash"`
}

// Claim is the structured payload of a non-genesis block: a wallet address
// and the star it registered.
type Claim struct {
	Owner string `json:"owner"`
	Star  string `json:"star"`
}

// NewBlock creates an unlinked block carrying data. The linkage fields stay
// zero until the ledger finalizes the block during Append, so a caller can
// never forge its position in the chain.
func NewBlock(data string) *Block {
	return &Block{Data: data}
}

// NewClaimBlock encodes a claim and wraps it in an unlinked block.
func NewClaimBlock(owner, star string) (*Block, error) {
	payload, err := json.Marshal(Claim{Owner: owner, Star: star})
	if err != nil {
		return nil, fmt.Errorf("encode claim: %w", err)
	}
	return NewBlock(string(payload)), nil
}

// finalize sets the linkage fields and computes the block hash. Called
// exactly once per block, by the ledger, under its write lock.
func (b *Block) finalize(height int, timestamp int64, prevHash string) {
	b.Height = height
	b.Timestamp = timestamp
	b.PrevHash = prevHash
	b.Hash = hashBlock(b)
}

// ValidateSelf recomputes the block hash and reports whether it matches the
// stored one. Linkage to the predecessor is the ledger's concern.
func (b *Block) ValidateSelf() bool {
	return b.Hash == hashBlock(b)
}

// Claim decodes the block payload back into its structured form. The second
// return is false for the genesis block, which carries no claim, and for
// payloads that do not decode.
func (b *Block) Claim() (*Claim, bool) {
	if b.Height == 0 {
		return nil, false
	}
	var c Claim
	if err := json.Unmarshal([]byte(b.Data), &c); err != nil {
		return nil, false
	}
	return &c, true
}

// hashBlock computes a deterministic SHA-256 hash over the block's canonical
// pipe-delimited serialization. Field order is fixed, so two logically
// identical blocks always hash identically.
func hashBlock(b *Block) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%s", b.Data, b.Height, b.Timestamp, b.PrevHash)
	return hex.EncodeToString(h.Sum(nil))
}
