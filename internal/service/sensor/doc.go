// Package sensor wires capture, classification and the alarm together.
//
// Run loads the settings, makes sure no other instance owns the alarm
// output, sounds the boot chime and then classifies every captured frame.
// Detections are alerted either directly on the capture goroutine
// (queue_depth 0) or through a bounded drop-newest queue.
package sensor
