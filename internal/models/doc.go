// Package models defines the records persisted by the repositories package.
//
// # Token
//
// [Token] is one successfully acquired auth token together with the strategy that produced it.
// Failed acquisitions are never recorded, so the most recent row is always a usable candidate
// for the pre-supplied ("solver") strategy.
//
// # CaptchaSolve
//
// [CaptchaSolve] is the summary of one captcha resolution. Individual solver task ids are not
// persisted; only counters and the terminal [SolveOutcome] are kept.
package models
