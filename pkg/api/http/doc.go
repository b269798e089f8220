// Package http exposes the run management REST API: submitting tasks,
// polling status, fetching final output and cancelling runs.
package http
