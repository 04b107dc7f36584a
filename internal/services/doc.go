// Package services defines the collaborators the auth and captcha orchestrator depends on and implements them.
//
// # Interfaces
//
//   - [BrowserLoginer] : automated or interactive login returning a raw auth token
//   - [TokenPrompter] : operator-supplied token
//   - [CaptchaSolver] : asynchronous third-party challenge solver (create task, poll result)
//   - [Scanner] : one poll of the scheduling site
//
// # Capsolver
//
// [CapSolver] talks to the Capsolver JSON API with resty. Task creation retries transport
// failures and 5xx responses with an exponential backoff; a solver-reported error is final.
// Polling maps errorId responses and unknown statuses to a nil [CaptchaResult], which the
// resolver treats as "create a new task".
//
// Both calls wait on a token bucket so a restarting resolver cannot flood the service.
//
// # Browser
//
// [RodBrowser] launches Chromium through go-rod, types the configured personal info into the
// login form and hijacks the response of the auth endpoint. It waits for as long as ctx allows
// so an operator can finish any in-page challenge.
//
// # Scanner
//
// [ProbeScanner] GETs a single endpoint with the session client and classifies the status:
//   - 401 : [shared.ErrTokenExpired]
//   - 428 : [shared.ErrCaptchaRequired]
//   - other non-2xx : [shared.ErrAPIRequest]
package services
