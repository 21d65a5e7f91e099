// Package config defines the sensor settings and provides helpers to load,
// validate and save them in YAML format.
//
// Config names the capture source (a monitor-mode interface or a replay
// file), the GPIO line of the buzzer and how detections reach it.
package config
