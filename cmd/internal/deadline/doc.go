// Package deadline provides the cancellable timer that bounds every network call
// made by the client.
//
// A Timer arms a deadline on construction. If Reset is called before the deadline
// elapses the timer never fires; otherwise the timer's context is cancelled with
// ErrTimeout. Callers always pair New with a deferred Reset.
package deadline
