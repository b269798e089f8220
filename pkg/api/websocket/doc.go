// Package websocket streams progress events for a run to connected
// clients.
package websocket
