// Package query turns the store's one-shot reads into live queries.
//
// A Live query delivers the current result as soon as it starts and a fresh
// result after every change the store publishes, until it is closed. Each
// subscription is evaluated by a single goroutine, so results arrive in the
// order of the store states they were read from. The delivery channel holds
// one value and always keeps the newest: a consumer that falls behind skips
// intermediate results but never sees an older one after a newer one.
//
// A failed re-evaluation is logged and skipped. The subscription stays open
// and evaluates again on the next change.
package query
