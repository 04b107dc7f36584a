// Package tasks acquires auth tokens and resolves captcha challenges for the scheduler scan loop.
//
// # Auth Token Acquisition
//
// [Orchestrator.GetAuthToken] makes one attempt with the configured [Strategy]:
//   - [StrategyBrowser] : [services.BrowserLoginer] drives a browser login
//   - [StrategyManual] : [services.TokenPrompter] asks the operator
//   - [StrategySolver] : the configured token, else the newest stored one
//
// A failure is logged and the [Session] keeps its previous token. The call never returns an error.
//
// # Captcha Resolution
//
// [Orchestrator.GetCaptchaToken] runs a small state machine per call:
//
//	CreatingTask -> Polling -> Ready
//	                        -> Restart (new task)
//	                        -> GiveUp ("")
//
// A processing task is polled every [CaptchaPollInterval] until the retry budget is used, then a new task is
// created without waiting. A task the solver rejects is replaced after [CaptchaRestartDelay]. Task creation
// errors and poll errors give up. New tasks are not capped; only ctx bounds a resolution.
//
// Each call owns its task id and counters, so concurrent calls do not interfere.
//
// # Progress Reporting
//
// Orchestrator and [ScanLoop] send [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking.
//
// # Scan Loop
//
// [ScanLoop] runs a cycle immediately and then on every tick of a [clockwork.Clock] ticker. A cycle
// re-acquires the token when the session is empty or the previous scan reported an expired token, and
// solves a captcha then rescans once when the site asks for one.
package tasks
