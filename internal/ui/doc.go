// Package ui renders the run's status lines to the terminal with lipgloss styles.
//
// A [Console] consumes the progress channel of a sync run and prints:
//
//	[spotivy v0.1.0] Saving videos to "tracks"
//	[Downloading playlist] Road Trip
//	   [Downloading track] Artist - Title
//	     [Download failed] reason
package ui
