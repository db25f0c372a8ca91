// Package link resolves option targets against the current scene ID.
package link

import (
	"path"
	"strings"
)

// Null is the sentinel scene ID used before the first scene and after undo.
const Null = "@null"

// IsControl reports whether link is an @-token handled by the state machine.
func IsControl(link string) bool {
	return strings.HasPrefix(link, "@")
}

// IsExternal reports whether link is an absolute web URL.
func IsExternal(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// RedirectFunc reports where a scene ID redirects to, if anywhere.
type RedirectFunc func(id string) (string, bool)

// Resolve turns link into an absolute scene ID relative to the directory of
// current. Control tokens and external URLs are returned unchanged. A single
// redirect is followed when redirect is non-nil.
func Resolve(current, link string, redirect RedirectFunc) string {
	if IsControl(link) || IsExternal(link) {
		return link
	}
	id := Join(current, link)
	if redirect != nil {
		if dest, ok := redirect(id); ok {
			return dest
		}
	}
	return id
}

// Join resolves link against the directory of current without following
// redirects. Absolute links ("/ns/name") ignore current.
func Join(current, link string) string {
	var p string
	if strings.HasPrefix(link, "/") {
		p = path.Clean(link)
	} else {
		p = path.Join("/", path.Dir("/"+current), link)
	}
	return strings.TrimPrefix(p, "/")
}
