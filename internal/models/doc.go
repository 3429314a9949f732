// Package models defines the domain entities shared by the catalog adapters, the ledger and the sync engine.
//
//   - [Playlist] : playlist metadata from the Spotify catalog
//   - [Track] : a playlist entry with its primary artist
//   - [Intent] : download mode (video or audio), fixed for a run
//   - [MediaMatch] : a resolved YouTube video for a track query
//
// All values are read-only once produced by a collaborator; nothing in this package performs I/O.
package models
