// Package dispatch executes plan steps in dependency order. Each pass
// runs every ready step (all dependencies succeeded, no success result
// yet) in parallel under a bounded concurrency limit, settles the whole
// pass, and only then advances the dependency frontier. Tool failures
// become error results; the only error the dispatcher itself raises is
// a dependency deadlock, which a validated plan should never produce.
package dispatch
