// Package ui implements the interactive terminal pieces of the scheduler using bubbletea's Elm architecture.
//
// [Prompter] asks the operator for an auth token with a masked textinput. The operator may paste the bare token
// or a request copied from the browser DevTools with "Copy as cURL", in which case the Authorization header is
// extracted. When stdin is not a terminal a single line is read so tokens can be piped in.
//
// [WatchProgress] renders [tasks.ProgressUpdate] values from a channel with a spinner until the producer closes
// the channel. Updates arrive through the Msg union type like any other bubbletea message.
package ui
