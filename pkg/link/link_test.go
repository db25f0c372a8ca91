package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		current string
		link    string
		want    string
	}{
		{"sibling", "cta2/plane_waiting", "plane_tryToSleep", "cta2/plane_tryToSleep"},
		{"parent", "a/b/c", "../d", "a/d"},
		{"absolute", "cta2/plane_waiting", "/built-in/start", "built-in/start"},
		{"from null sentinel", Null, "/built-in/start", "built-in/start"},
		{"relative from null", Null, "story/start", "story/start"},
		{"namespace hop", "built-in/start", "../cta2/start", "cta2/start"},
		{"dot segments", "a/b", "./c/../d", "a/d"},
		{"above root clamps", "a/b", "../../../x", "x"},
		{"undo token", "a/b", "@undo", "@undo"},
		{"external", "a/b", "https://example.com/x", "https://example.com/x"},
		{"plain http", "a/b", "http://example.com", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.current, tt.link, nil))
		})
	}
}

func TestResolve_Redirect(t *testing.T) {
	redirects := map[string]string{
		"cta2/start":         "cta2/plane_waiting",
		"cta2/plane_waiting": "cta2/elsewhere",
	}
	lookup := func(id string) (string, bool) {
		dest, ok := redirects[id]
		return dest, ok
	}

	// Only one hop is followed.
	assert.Equal(t, "cta2/plane_waiting", Resolve("built-in/start", "../cta2/start", lookup))
	assert.Equal(t, "cta2/other", Resolve("cta2/x", "other", lookup))
	assert.Equal(t, "@reset", Resolve("cta2/x", "@reset", lookup))
}

func TestClassify(t *testing.T) {
	assert.True(t, IsControl("@end"))
	assert.False(t, IsControl("end"))
	assert.True(t, IsExternal("https://x"))
	assert.False(t, IsExternal("httpx/scene"))
}
