// Package actuator drives the alarm output.
//
// Actuator owns the binary output exclusively and turns every detection into
// a fixed one second pulse. Pulses never overlap: a caller arriving while a
// pulse is in progress waits for it to finish and then runs its own pulse.
//
// Dispatcher is an optional bounded queue in front of an Actuator. It lets
// the capture path hand detections off without waiting for the pulse; when
// the queue is full the newest detection is dropped and counted.
package actuator
