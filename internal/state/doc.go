// Package state shares live queries between any number of observers.
//
// The Hub owns one Shared stream per logical query. A Shared stream starts
// its upstream live query when the first observer attaches and keeps it
// running for a grace period after the last observer leaves, so a view that
// is torn down and immediately recreated reuses the running query. Every
// stream caches its last value in a Cell; an observer sees that value the
// moment it attaches and every distinct value after it.
//
// Values handed to observers are shared between them and must be treated as
// read-only.
//
// The Hub also records the outcome of the most recently completed
// submission. The outcome is a single overwrite-on-write slot: concurrent
// submissions race and the last one to finish wins.
package state
