// Package repositories implements SQLite persistence for acquired auth tokens and captcha solve history.
//
// Key Implementations:
//   - [TokenRepository] : Tokens acquired by any auth strategy, newest first
//   - [CaptchaSolveRepository] : One summary row per captcha resolution
//   - [HistoryStore] : Adapter combining both for the orchestrator
//
// IDs are v4 UUIDs generated on insert. Rows are append-only; nothing is updated in place.
package repositories
