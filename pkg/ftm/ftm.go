// Package ftm implements Fancy Text Maker, the markup used in scene passages
// and option labels: *italic*, **bold**, ~~strike~~, __underline__,
// `code`, ```block code```, <tag>custom classes</tag>, backslash escapes,
// ${expression} interpolation and "=expression" whole-text mode.
package ftm

import (
	"regexp"
	"strings"

	"github.com/jwebster45206/scene-engine/pkg/expr"
)

// Evaluator evaluates embedded expressions. source labels the caller for
// diagnostics. Implementations contain their own failures.
type Evaluator interface {
	Eval(expression, source string) expr.Value
}

// EnvEvaluator evaluates against a bare environment; failed expressions
// render as undefined.
type EnvEvaluator struct {
	Env expr.Env
}

func (e EnvEvaluator) Eval(expression, _ string) expr.Value {
	v, err := expr.Evaluate(expression, e.Env)
	if err != nil {
		return expr.Undefined
	}
	return v
}

// Options control a render.
type Options struct {
	// Inline renders a single paragraph: blank lines and ``` are ordinary text.
	Inline bool
	// DisableExpressions leaves "=" and ${...} untouched.
	DisableExpressions bool
}

const (
	sourceWholeText = "FancyTextExpression"
	sourceInline    = "FancyTextInlineExpression"
)

var (
	interpolation = regexp.MustCompile(`\\?\$\{([^}]+)\}`)
	blankLine     = regexp.MustCompile(`(?m)^[ \t\r\f\v]+$`)
	extraBreaks   = regexp.MustCompile(`\n{3,}`)
	customTag     = regexp.MustCompile(`^<(/)?([\w-]+)>`)
)

// Render formats raw into paragraphs. ev may be nil when the text carries no
// expressions. Paragraphs that end up with no runs are omitted, so a passage
// opening with a code block yields the code paragraph first and an empty
// passage yields no paragraphs at all.
func Render(raw string, ev Evaluator, opts Options) []Paragraph {
	text := preprocess(raw, ev, opts)
	t := &tokenizer{text: text, inline: opts.Inline, custom: map[string]bool{}}
	t.scan()
	var out []Paragraph
	for _, p := range t.paragraphs {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// RenderInline formats raw as a single run list, for labels and titles.
func RenderInline(raw string, ev Evaluator, opts Options) []Run {
	opts.Inline = true
	ps := Render(raw, ev, opts)
	if len(ps) == 0 {
		return nil
	}
	return ps[0]
}

func preprocess(text string, ev Evaluator, opts Options) string {
	expressions := ev != nil && !opts.DisableExpressions
	switch {
	case expressions && strings.HasPrefix(text, "="):
		text = ev.Eval(text[1:], sourceWholeText).String()
	case strings.HasPrefix(text, `\=`):
		text = text[1:]
	}
	if expressions {
		text = interpolation.ReplaceAllStringFunc(text, func(m string) string {
			if strings.HasPrefix(m, `\`) {
				return m[1:]
			}
			code := interpolation.FindStringSubmatch(m)[1]
			return ev.Eval(code, sourceInline).String()
		})
	}
	text = blankLine.ReplaceAllString(text, "")
	return extraBreaks.ReplaceAllString(text, "\n\n")
}

type tokenizer struct {
	text   string
	inline bool

	style  Style
	custom map[string]bool
	order  []string // custom tags in first-seen order
	chunk  strings.Builder

	paragraphs []Paragraph
}

func (t *tokenizer) at(i int) byte {
	if i < 0 || i >= len(t.text) {
		return 0
	}
	return t.text[i]
}

func (t *tokenizer) toggle(s Style) {
	t.flush()
	t.style ^= s
}

func (t *tokenizer) newParagraph() {
	t.paragraphs = append(t.paragraphs, nil)
}

// flush ends the pending chunk as a run carrying the active styles.
func (t *tokenizer) flush() {
	if t.chunk.Len() == 0 {
		return
	}
	text := t.chunk.String()
	t.chunk.Reset()

	style, keepCustom := t.style.resolve()
	if !keepCustom {
		text = strings.TrimSpace(text)
	}
	run := Run{Text: text, Style: style}
	if keepCustom {
		for _, tag := range t.order {
			if t.custom[tag] {
				run.Custom = append(run.Custom, tag)
			}
		}
	}
	last := len(t.paragraphs) - 1
	t.paragraphs[last] = append(t.paragraphs[last], run)
}

func (t *tokenizer) scan() {
	t.newParagraph()
	for i := 0; i < len(t.text); i++ {
		c, next := t.text[i], t.at(i+1)
		escaped := t.at(i-1) == '\\'
		markup := t.style&(Code|BlockCode) == 0 && !escaped

		switch {
		case markup && c == '*' && next != '*':
			t.toggle(Italic)
		case markup && c == '~' && next == '~':
			t.toggle(Strike)
			i++
		case markup && c == '_' && next == '_':
			t.toggle(Underline)
			i++
		case markup && c == '*' && next == '*':
			t.toggle(Bold)
			i++
		case !t.style.Has(Code) && !t.inline && !escaped &&
			c == '`' && next == '`' && t.at(i+2) == '`':
			t.flush()
			t.newParagraph()
			t.style ^= BlockCode
			i += 2
		case !t.style.Has(BlockCode) && !escaped && c == '`' && next != '`':
			t.toggle(Code)
		case t.style&(Code|BlockCode) == 0 && c == '<':
			m := customTag.FindStringSubmatch(t.text[i:])
			if m == nil {
				t.chunk.WriteByte('<')
				continue
			}
			t.flush()
			tag := m[2]
			if _, seen := t.custom[tag]; !seen {
				t.order = append(t.order, tag)
			}
			t.custom[tag] = m[1] != "/"
			i += len(m[0]) - 1
		case !t.style.Has(BlockCode) && c == '\\' && strings.IndexByte("*`~\\<", next) >= 0 && next != 0:
			t.chunk.WriteByte(next)
			i++
		case !t.inline && c == '\n' && next == '\n':
			t.flush()
			t.newParagraph()
			i++
		default:
			t.chunk.WriteByte(c)
		}
	}
	t.flush()
}

// Plain flattens paragraphs to text, one paragraph per line pair.
func Plain(paragraphs []Paragraph) string {
	var b strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(PlainRuns(p))
	}
	return b.String()
}

// PlainRuns concatenates run text.
func PlainRuns(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}
