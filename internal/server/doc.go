// Package server implements the HTTP front of the service: the client
// WebSocket streaming endpoint and the monitoring API (health, sessions,
// configuration, Prometheus metrics).
package server
