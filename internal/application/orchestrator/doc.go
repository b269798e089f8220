// Package orchestrator implements the plan/execute/verify loop that turns
// a natural-language task into a validated, synthesized answer.
//
// The agent drives a bounded-iteration state machine
// (planning -> executing -> verifying -> complete|failed) over three
// collaborators:
//   - the planner adapter, which turns task + feedback into a validated plan
//   - the step dispatcher, which runs dependency-ready steps in parallel
//   - the verifier adapter, which scores accumulated results and decides
//     whether to deliver, resume with feedback, or discard and replan
//
// The validator ensures plans are well-formed DAGs before any side effect
// occurs. The manager wraps the agent for asynchronous API use.
package orchestrator
