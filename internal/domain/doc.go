// Package domain defines the core types of the agent orchestration loop:
// tasks, plans, plan steps, execution results, verification verdicts and
// the whole-run agent state.
//
// Values arriving from the model service (action types, complexity tiers,
// verdicts) are closed tag sets: parse functions reject anything outside
// the known tags instead of accepting it permissively.
package domain
