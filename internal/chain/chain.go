// Package chain implements the Starkeep block chain: an append-only,
// tamper-evident ledger of star ownership claims.
//
// Every block carries the SHA-256 of its predecessor, so any mutation of a
// stored block is detectable by Validate. The chain begins with a genesis
// block synthesized at construction; a ledger is never observably empty.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and single-process deployments.
//   - PostgresLedger: durable, for production use.
package chain
