package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/spotivy/internal/models"
	"github.com/desertthunder/spotivy/internal/tasks"
)

// Console prints the run's human-facing status lines.
type Console struct {
	out     io.Writer
	errOut  io.Writer
	palette *Palette
}

// NewConsole writes regular lines to out and failures to errOut.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut, palette: styles}
}

// Banner prints the program name and where media is being saved.
func (c *Console) Banner(name, version string, intent models.Intent, output string) {
	kind := "videos"
	if intent == models.IntentAudio {
		kind = "audios"
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.palette.title.Render(fmt.Sprintf("[%s v%s]", name, version)), fmt.Sprintf("Saving %s to %q", kind, output))
	fmt.Fprintln(c.out)
}

// Playlist announces a playlist sync.
func (c *Console) Playlist(name string) {
	fmt.Fprintln(c.out, c.palette.head.Render("[Downloading playlist]"), name)
}

// Track announces a track attempt.
func (c *Console) Track(label string) {
	fmt.Fprintln(c.out, c.palette.head.Render("   [Downloading track]"), label)
}

// Failed reports a skipped track.
func (c *Console) Failed(reason string) {
	fmt.Fprintln(c.errOut, c.palette.err.Render("     [Download failed]"), reason)
}

// Summary prints the totals of a finished run.
func (c *Console) Summary(result *tasks.RunResult) {
	if result == nil {
		return
	}

	fmt.Fprintln(c.out)
	line := fmt.Sprintf("%d playlists, %d tracks downloaded, %d skipped", len(result.Playlists), result.Recorded(), result.Skipped())
	if result.Skipped() > 0 {
		fmt.Fprintln(c.out, c.palette.warn.Render(line))
	} else {
		fmt.Fprintln(c.out, c.palette.help.Render(line))
	}
}

// Render prints the line for a single progress update. Phases without a console line are ignored.
func (c *Console) Render(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.SyncPlaylist:
		c.Playlist(u.Message)
	case tasks.ResolveTrack:
		c.Track(u.Message)
	case tasks.SkipTrack:
		c.Failed(u.Message)
	}
}

// Consume renders updates until progress is closed, then closes done.
func (c *Console) Consume(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for u := range progress {
		c.Render(u)
	}
}
