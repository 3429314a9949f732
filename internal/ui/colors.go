package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#04B575", "#5F87FF", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	head  lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from foreground colors for titles, headings, errors, warnings and hints.
func NewPalette(t, h, e, w, hint string) *Palette {
	return &Palette{
		title: NewBold(t),
		head:  NewBold(h),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(hint),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
