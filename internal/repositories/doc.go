// Package repositories implements SQLite persistence for run history.
//
// History is an observer of the sync engine: the ledger files remain the only state that decides
// whether a track is downloaded, and history writes never affect a run.
//
// Key Implementations:
//   - [RunRepository] : Runs and per-track events, with sequence numbers for display
//   - [HistoryRecorder] : Adapter implementing tasks.Recorder on top of [RunRepository]
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
