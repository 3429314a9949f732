// Package tasks mirrors a catalog user's playlists to local media files with real-time progress reporting.
//
// # Core Operations
//
//  1. [Driver.Run] : Full mirror of every playlist of a user
//     - Lists the user's playlists from the [services.Catalog]
//     - Runs a [PlaylistStep] for each one, in catalog order
//     - Aborts on the first playlist-level error
//
//  2. [PlaylistStep.Sync] : Mirror of one playlist
//     - Loads (or bootstraps) the playlist's ledger
//     - Lists all tracks and filters out those the ledger already contains
//     - Runs a [TrackStep] for each outstanding track, strictly sequentially
//
//  3. [TrackStep.Sync] : One track through the [TrackState] machine
//     - Resolves the "artist - title" label with the [services.Resolver]
//     - Fetches the match with the [services.Fetcher]
//     - Tags audio files when a [services.Tagger] is set
//     - Records the track and persists the ledger immediately
//
// # Failure Isolation
//
// A track that has no match or fails to download is skipped and never recorded, so the next run
// retries it. Catalog failures and ledger corruption or write failures are fatal.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [Recorder] interface observes runs and track outcomes.
// Recorder errors are logged and ignored so history never disrupts a sync.
package tasks
