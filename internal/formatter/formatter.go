// package formatter renders ledgers and run history as plain text, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/desertthunder/spotivy/internal/ledger"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text", "csv" or "json". An empty string is text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidFlag, s)
	}
}

// LedgerEntry is one recorded track in ledger order.
type LedgerEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// LedgerExport is a named ledger flattened for rendering.
type LedgerExport struct {
	Playlist string        `json:"playlist"`
	Path     string        `json:"path"`
	Entries  []LedgerEntry `json:"entries"`
}

// NewLedgerExport flattens l in completion order.
func NewLedgerExport(playlist, path string, l *ledger.Ledger) *LedgerExport {
	export := &LedgerExport{Playlist: playlist, Path: path, Entries: []LedgerEntry{}}
	for _, id := range l.IDs {
		export.Entries = append(export.Entries, LedgerEntry{ID: id, Label: l.Names[id]})
	}
	return export
}

// LedgerToText renders a numbered track list with a short header.
func LedgerToText(export *LedgerExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist))
	if export.Path != "" {
		buf.WriteString(fmt.Sprintf("Ledger: %s\n", export.Path))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Entries)))

	for i, e := range export.Entries {
		label := e.Label
		if label == "" {
			label = "(unnamed)"
		}
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, label, e.ID))
	}

	return buf.Bytes(), nil
}

// LedgerToCSV renders entries with columns: ID, Label
func LedgerToCSV(export *LedgerExport) ([]byte, error) {
	records := make([][]string, 0, len(export.Entries))
	for _, e := range export.Entries {
		records = append(records, []string{e.ID, e.Label})
	}
	return writeCSV([]string{"ID", "Label"}, records)
}

// RunsToText renders one line per run, most recent first as given.
func RunsToText(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes(), nil
	}

	for _, r := range runs {
		buf.WriteString(fmt.Sprintf("#%d %s %s (%s) %s -> %s: %d playlists, %d recorded, %d skipped",
			r.Sequence,
			r.StartedAt.Local().Format(time.DateTime),
			r.Username,
			r.Intent,
			r.Status,
			r.Output,
			r.Playlists,
			r.Recorded,
			r.Skipped,
		))
		if d := r.Duration(); d > 0 {
			buf.WriteString(fmt.Sprintf(" in %s", d.Round(time.Second)))
		}
		if r.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf("\n    error: %s", r.ErrorMessage))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// RunsToCSV renders runs with columns: Sequence, ID, Username, Intent, Output, Status, Playlists, Recorded, Skipped, StartedAt, CompletedAt, Error
func RunsToCSV(runs []*models.Run) ([]byte, error) {
	headers := []string{"Sequence", "ID", "Username", "Intent", "Output", "Status", "Playlists", "Recorded", "Skipped", "StartedAt", "CompletedAt", "Error"}

	records := make([][]string, 0, len(runs))
	for _, r := range runs {
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{
			strconv.Itoa(r.Sequence),
			r.ID,
			r.Username,
			r.Intent,
			r.Output,
			string(r.Status),
			strconv.Itoa(r.Playlists),
			strconv.Itoa(r.Recorded),
			strconv.Itoa(r.Skipped),
			r.StartedAt.UTC().Format(time.RFC3339),
			completed,
			r.ErrorMessage,
		})
	}
	return writeCSV(headers, records)
}

// EventsToText renders one line per track outcome of a run.
func EventsToText(events []*models.TrackEvent) ([]byte, error) {
	var buf bytes.Buffer

	if len(events) == 0 {
		buf.WriteString("No tracks attempted.\n")
		return buf.Bytes(), nil
	}

	playlist := ""
	for _, e := range events {
		if e.Playlist != playlist {
			playlist = e.Playlist
			buf.WriteString(fmt.Sprintf("%s\n", playlist))
		}
		buf.WriteString(fmt.Sprintf("  %-18s %s [%s]\n", e.State, e.Label, e.TrackID))
		if e.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf("    error: %s\n", e.ErrorMessage))
		}
	}

	return buf.Bytes(), nil
}

// EventsToCSV renders events with columns: Playlist, TrackID, Label, State, Error, CreatedAt
func EventsToCSV(events []*models.TrackEvent) ([]byte, error) {
	records := make([][]string, 0, len(events))
	for _, e := range events {
		records = append(records, []string{
			e.Playlist,
			e.TrackID,
			e.Label,
			e.State,
			e.ErrorMessage,
			e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV([]string{"Playlist", "TrackID", "Label", "State", "Error", "CreatedAt"}, records)
}

// WriteLedger renders export in the given format to w.
func WriteLedger(w io.Writer, f Format, export *LedgerExport) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case FormatCSV:
		data, err = LedgerToCSV(export)
	case FormatJSON:
		data, err = shared.MarshalJSON(export, true)
	default:
		data, err = LedgerToText(export)
	}
	if err != nil {
		return fmt.Errorf("failed to render ledger: %w", err)
	}
	return write(w, data, f)
}

// WriteRuns renders runs in the given format to w.
func WriteRuns(w io.Writer, f Format, runs []*models.Run) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case FormatCSV:
		data, err = RunsToCSV(runs)
	case FormatJSON:
		if runs == nil {
			runs = []*models.Run{}
		}
		data, err = shared.MarshalJSON(runs, true)
	default:
		data, err = RunsToText(runs)
	}
	if err != nil {
		return fmt.Errorf("failed to render runs: %w", err)
	}
	return write(w, data, f)
}

// WriteEvents renders track events in the given format to w.
func WriteEvents(w io.Writer, f Format, events []*models.TrackEvent) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case FormatCSV:
		data, err = EventsToCSV(events)
	case FormatJSON:
		if events == nil {
			events = []*models.TrackEvent{}
		}
		data, err = shared.MarshalJSON(events, true)
	default:
		data, err = EventsToText(events)
	}
	if err != nil {
		return fmt.Errorf("failed to render track events: %w", err)
	}
	return write(w, data, f)
}

func write(w io.Writer, data []byte, f Format) error {
	if f == FormatJSON {
		data = append(data, '\n')
	}
	_, err := w.Write(data)
	return err
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
