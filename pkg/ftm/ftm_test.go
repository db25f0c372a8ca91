package ftm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/pkg/expr"
)

type recordingEvaluator struct {
	env     expr.MapEnv
	sources []string
}

func (r *recordingEvaluator) Eval(expression, source string) expr.Value {
	r.sources = append(r.sources, source)
	v, err := expr.Evaluate(expression, r.env)
	if err != nil {
		return expr.Undefined
	}
	return v
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Run
	}{
		{
			name: "plain",
			raw:  "hello world",
			want: []Run{{Text: "hello world"}},
		},
		{
			name: "bold with nested italic",
			raw:  "**bold *and italic***",
			want: []Run{
				{Text: "bold ", Style: Bold},
				{Text: "and italic", Style: Bold | Italic},
			},
		},
		{
			name: "escaped asterisk",
			raw:  `a\*b`,
			want: []Run{{Text: "a*b"}},
		},
		{
			name: "strike and underline",
			raw:  "~~gone~~ and __marked__",
			want: []Run{
				{Text: "gone", Style: Strike},
				{Text: " and "},
				{Text: "marked", Style: Underline},
			},
		},
		{
			name: "code suppresses other styles and trims",
			raw:  "*see ` x = 1 ` now*",
			want: []Run{
				{Text: "see ", Style: Italic},
				{Text: "x = 1", Style: Code},
				{Text: " now", Style: Italic},
			},
		},
		{
			name: "markers inside code are literal",
			raw:  "`**not bold**`",
			want: []Run{{Text: "**not bold**", Style: Code}},
		},
		{
			name: "custom tag",
			raw:  "a <red>warm</red> glow",
			want: []Run{
				{Text: "a "},
				{Text: "warm", Custom: []string{"red"}},
				{Text: " glow"},
			},
		},
		{
			name: "custom tag with style",
			raw:  "<big-text>**loud**</big-text>",
			want: []Run{{Text: "loud", Style: Bold, Custom: []string{"big-text"}}},
		},
		{
			name: "unmatched angle bracket",
			raw:  "1 < 2",
			want: []Run{{Text: "1 < 2"}},
		},
		{
			name: "escaped angle bracket",
			raw:  `\<red>`,
			want: []Run{{Text: "<red>"}},
		},
		{
			name: "unterminated region flushes",
			raw:  "**dangling",
			want: []Run{{Text: "dangling", Style: Bold}},
		},
		{
			name: "single underscore is literal",
			raw:  "snake_case",
			want: []Run{{Text: "snake_case"}},
		},
		{
			name: "block code fences are not recognized inline",
			raw:  "```x```",
			want: []Run{{Text: "``"}, {Text: "x``", Style: Code}},
		},
		{
			name: "blank line is text when inline",
			raw:  "a\n\nb",
			want: []Run{{Text: "a\n\nb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderInline(tt.raw, nil, Options{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Paragraphs(t *testing.T) {
	got := Render("First line.\n   \n\n\nSecond *line*.", nil, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, Paragraph{{Text: "First line."}}, got[0])
	assert.Equal(t, Paragraph{{Text: "Second "}, {Text: "line", Style: Italic}, {Text: "."}}, got[1])
}

func TestRender_BlockCode(t *testing.T) {
	got := Render("Run this:```\n  go test ./...\n```done", nil, Options{})
	require.Len(t, got, 3)
	assert.Equal(t, Paragraph{{Text: "Run this:"}}, got[0])
	assert.Equal(t, Paragraph{{Text: "go test ./...", Style: BlockCode}}, got[1])
	assert.Equal(t, Paragraph{{Text: "done"}}, got[2])
}

func TestRender_EmptyParagraphsOmitted(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Paragraph
	}{
		{name: "empty passage", raw: "", want: nil},
		{name: "only blank lines", raw: "\n  \n\n", want: nil},
		{name: "leading code block", raw: "```\nlook\n```", want: []Paragraph{{{Text: "look", Style: BlockCode}}}},
		{name: "code block then text", raw: "```\nlook\n```after", want: []Paragraph{
			{{Text: "look", Style: BlockCode}},
			{{Text: "after"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.raw, nil, Options{}))
		})
	}
}

func TestRender_Expressions(t *testing.T) {
	ev := &recordingEvaluator{env: expr.MapEnv{"name": expr.String("Dave"), "hours": expr.Number(8)}}

	got := RenderInline("Hi ${name}, you slept ${hours} hours", ev, Options{})
	assert.Equal(t, "Hi Dave, you slept 8 hours", PlainRuns(got))

	got = RenderInline(`literal \${name}`, ev, Options{})
	assert.Equal(t, "literal ${name}", PlainRuns(got))

	got = RenderInline(`="**" + name + "**"`, ev, Options{})
	assert.Equal(t, []Run{{Text: "Dave", Style: Bold}}, got)
	assert.Contains(t, ev.sources, "FancyTextExpression")
	assert.Contains(t, ev.sources, "FancyTextInlineExpression")

	got = RenderInline(`\=not an expression`, ev, Options{})
	assert.Equal(t, "=not an expression", PlainRuns(got))

	got = RenderInline("${name}", ev, Options{DisableExpressions: true})
	assert.Equal(t, "${name}", PlainRuns(got))
}

func TestRender_AssignmentsMutate(t *testing.T) {
	ev := &recordingEvaluator{env: expr.MapEnv{}}
	RenderInline("${count = 1}", ev, Options{})
	assert.True(t, expr.Number(1).Equal(ev.env["count"]))
}

func TestRender_Idempotent(t *testing.T) {
	ev := EnvEvaluator{Env: expr.MapEnv{"x": expr.Number(2)}}
	raw := "**a** <c>b</c> `c`\n\n~~d~~ ${x * 2}"
	first := Render(raw, ev, Options{})
	second := Render(raw, ev, Options{})
	assert.Equal(t, first, second)
	assert.Equal(t, "a b c\n\nd 4", Plain(first))
}

func TestRun_ClassesAndJSON(t *testing.T) {
	r := Run{Text: "x", Style: Bold | Italic, Custom: []string{"red"}}
	assert.Equal(t, []string{"ftm-italic", "ftm-bold", "red"}, r.Classes())
	assert.Equal(t, []string{"italic", "bold", "custom-red"}, r.Styles())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"x","styles":["italic","bold","custom-red"]}`, string(data))

	var back Run
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestTerminal(t *testing.T) {
	term := Terminal{Width: 10}
	out := term.Paragraphs(Render("one two three four\n\nfive", nil, Options{}))
	assert.True(t, strings.Contains(out, "\n\nfive"))
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 10)
	}
}
