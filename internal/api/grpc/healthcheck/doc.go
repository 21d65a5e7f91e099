// Package healthcheck exposes the sensor liveness over the standard gRPC
// health protocol (grpc.health.v1.Health).
//
// It reports SERVING once the alarm output passed its boot chime and
// NOT_SERVING while starting up or shutting down. Detections are never
// reported over the network.
package healthcheck
