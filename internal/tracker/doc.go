// Package tracker manages GPS devices, their ingest API keys, and
// recorded location fixes.
//
// Each device belongs to exactly one user and carries at most one live
// API key. Minting a key replaces the previous one, so a leaked key is
// revoked by regenerating. Location fixes are append-only.
package tracker
