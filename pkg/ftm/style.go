package ftm

import (
	"encoding/json"
	"strings"
)

// Style is the set of built-in formatting flags active on a run.
type Style uint8

const (
	Italic Style = 1 << iota
	Bold
	Strike
	Underline
	Code
	BlockCode
)

var styleNames = []struct {
	flag Style
	name string
}{
	{Italic, "italic"},
	{Bold, "bold"},
	{Strike, "strike"},
	{Underline, "underline"},
	{Code, "code"},
	{BlockCode, "blockCode"},
}

// Has reports whether every flag in f is set.
func (s Style) Has(f Style) bool { return s&f == f }

// exclusive lists, strongest first, the styles that replace every other
// active style when present.
var exclusive = []Style{BlockCode, Code}

// resolve applies the precedence table. The boolean reports whether custom
// classes survive.
func (s Style) resolve() (Style, bool) {
	for _, e := range exclusive {
		if s.Has(e) {
			return e, false
		}
	}
	return s, true
}

// Names returns the flag names in a stable order.
func (s Style) Names() []string {
	var names []string
	for _, sn := range styleNames {
		if s.Has(sn.flag) {
			names = append(names, sn.name)
		}
	}
	return names
}

func (s Style) String() string {
	if s == 0 {
		return "plain"
	}
	return strings.Join(s.Names(), "+")
}

// Run is a span of text sharing one set of styles. Custom holds the names of
// any <tag> classes active on the span, in the order they were opened.
type Run struct {
	Text   string
	Style  Style
	Custom []string
}

// Styles lists the run's styles the way a stylesheet sees them: built-in
// flags first, then custom tags prefixed with "custom-".
func (r Run) Styles() []string {
	styles := r.Style.Names()
	for _, c := range r.Custom {
		styles = append(styles, "custom-"+c)
	}
	return styles
}

// Classes returns CSS class names for the run: "ftm-<style>" for built-in
// styles and the bare tag name for custom ones.
func (r Run) Classes() []string {
	var classes []string
	for _, n := range r.Style.Names() {
		classes = append(classes, "ftm-"+n)
	}
	return append(classes, r.Custom...)
}

func (r Run) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text   string   `json:"text"`
		Styles []string `json:"styles,omitempty"`
	}{r.Text, r.Styles()})
}

// UnmarshalJSON reads the shape MarshalJSON writes. Unknown style names are
// dropped.
func (r *Run) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text   string   `json:"text"`
		Styles []string `json:"styles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Run{Text: raw.Text}
	for _, name := range raw.Styles {
		if c, ok := strings.CutPrefix(name, "custom-"); ok {
			r.Custom = append(r.Custom, c)
			continue
		}
		for _, sn := range styleNames {
			if sn.name == name {
				r.Style |= sn.flag
			}
		}
	}
	return nil
}

// Paragraph is one block of runs.
type Paragraph []Run
