// Package classifier matches raw 802.11 frames against the known attack
// signatures.
//
// Classify is a pure function: it keeps no state, performs no I/O and never
// retains the frame payload, so capture code may call it from any goroutine
// and reuse the buffer right after it returns.
package classifier
