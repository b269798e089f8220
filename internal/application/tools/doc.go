// Package tools maps plan step action kinds onto the downstream services
// that carry them out. One runner per action kind: compute (sandboxed
// code execution), retrieve (document search), fetch-data (market time
// series), derive-indicators (technical indicator math over fetched
// series) and synthesize (model-written consolidation of all artifacts).
package tools
