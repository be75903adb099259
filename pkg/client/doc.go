// Package client provides the Starkeep Go SDK: a typed HTTP client for
// requesting ownership challenges, submitting signed star claims, and
// querying the chain.
package client
