// Package sim provides the stochastic plasmid population engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - plasmid.go: Plasmid instances, trait interning into pids, per-site residency
//   - event.go: pure per-site decision function (propensities → event kind)
//   - engine.go: State, the tick loop and the lysis/fission/transfer/immigration events
//   - simulator.go: stop rules, observers and the run loop
//
// # Architecture
//
// All mutable state (lattice, registry, pid counter, random streams) lives in
// a State value owned by a single goroutine. Each tick performs
// ceil(sites/mortality) independent trials on uniformly drawn sites; every
// trial fully completes before the next begins.
//
// Sub-packages consume the per-tick Summary:
//   - sim/trace/: per-tick event counts
//   - sim/export/: per-pid export records persisted to SQLite
//   - sim/telemetry/: Prometheus gauges written to a textfile
//
// # Key Interfaces
//   - IncompatibilityResolver: inheritance and conflict resolution at fission
//   - Observer / Finisher: per-tick and end-of-run consumers of the Summary
package sim
