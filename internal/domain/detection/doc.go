// Package detection contains the core domain types produced by frame
// classification.
//
// It defines Kind (which attack signature matched), MAC (a transmitter
// hardware address) and Detection (one positive match). All of them are plain
// values, so handing a Detection to another goroutine never shares memory
// with the captured frame it came from.
package detection
