// Package events groups the progress event sink adapters: an in-memory
// hub for websocket streaming and a Redis Streams publisher for
// multi-node deployments.
package events
