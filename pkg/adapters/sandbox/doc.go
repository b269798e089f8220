// Package sandbox runs model-generated code in an isolated remote
// executor and validates code against a safety policy before dispatch.
package sandbox
