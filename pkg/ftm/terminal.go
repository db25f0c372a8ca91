package ftm

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Terminal renders formatted text as ANSI for the console player.
type Terminal struct {
	Width int // wrap column; 0 disables wrapping

	// Custom maps <tag> names to styles. Unknown tags render plain.
	Custom map[string]lipgloss.Style
}

var (
	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Background(lipgloss.Color("235"))

	blockCodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

func (t Terminal) runStyle(r Run) lipgloss.Style {
	switch {
	case r.Style.Has(BlockCode):
		return blockCodeStyle
	case r.Style.Has(Code):
		return codeStyle
	}
	s := lipgloss.NewStyle()
	for _, tag := range r.Custom {
		if cs, ok := t.Custom[tag]; ok {
			s = s.Inherit(cs)
		}
	}
	return s.
		Italic(r.Style.Has(Italic)).
		Bold(r.Style.Has(Bold)).
		Strikethrough(r.Style.Has(Strike)).
		Underline(r.Style.Has(Underline))
}

// Runs renders one run list.
func (t Terminal) Runs(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Style == 0 && len(r.Custom) == 0 {
			b.WriteString(r.Text)
			continue
		}
		b.WriteString(t.runStyle(r).Render(r.Text))
	}
	if t.Width > 0 {
		return wordwrap.String(b.String(), t.Width)
	}
	return b.String()
}

// Paragraphs renders paragraphs separated by blank lines.
func (t Terminal) Paragraphs(paragraphs []Paragraph) string {
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = t.Runs(p)
	}
	return strings.Join(out, "\n\n")
}
