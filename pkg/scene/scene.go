// Package scene defines scene documents, their validation and the built-in
// scenes every game ships with.
package scene

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type discriminates the two scene variants.
type Type string

const (
	TypeScene  Type = "scene"
	TypeEnding Type = "ending"
)

// RedirectPrefix marks a meta string naming the scene to go to instead.
const RedirectPrefix = "redirect:"

// Scene is either a *Normal or an *Ending.
type Scene interface {
	Type() Type
	Common() *Base
	sealed()
}

// Base holds the fields both variants share.
type Base struct {
	Passage         string
	Source          Source
	OnActivate      string
	OnFirstActivate string
	CSS             string
	Meta            string
}

func (b *Base) Common() *Base { return b }

// Redirect reports the destination when Meta is a redirect marker.
func (b *Base) Redirect() (string, bool) {
	if !strings.HasPrefix(b.Meta, RedirectPrefix) {
		return "", false
	}
	return strings.TrimPrefix(b.Meta, RedirectPrefix), true
}

// Normal is a scene with options.
type Normal struct {
	Base
	Options           []Option
	OnDeactivate      string
	OnFirstDeactivate string
	PreloadScenes     []string
}

func (*Normal) Type() Type { return TypeScene }
func (*Normal) sealed()    {}

// Ending is a terminal scene.
type Ending struct {
	Base
	Title       string
	Description string
	Views       int
}

func (*Ending) Type() Type { return TypeEnding }
func (*Ending) sealed()    {}

// Option is a separator or a labelled choice.
type Option struct {
	Separator  bool
	Label      string
	To         string
	IsVisible  string
	IsDisabled string
	OnActivate string
}

// SeparatorOption is the divider sentinel.
var SeparatorOption = Option{Separator: true}

const separatorLiteral = "separator"

type optionDoc struct {
	Label      string `json:"label"`
	To         string `json:"to,omitempty"`
	IsVisible  string `json:"isVisible,omitempty"`
	IsDisabled string `json:"isDisabled,omitempty"`
	OnActivate string `json:"onActivate,omitempty"`
}

func (o Option) MarshalJSON() ([]byte, error) {
	if o.Separator {
		return json.Marshal(separatorLiteral)
	}
	return json.Marshal(optionDoc{o.Label, o.To, o.IsVisible, o.IsDisabled, o.OnActivate})
}

// Attribution credits one contributor.
type Attribution struct {
	Name string
	Desc string
}

func (a Attribution) String() string {
	if a.Desc == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Desc)
}

func (a Attribution) MarshalJSON() ([]byte, error) {
	if a.Desc == "" {
		return json.Marshal(a.Name)
	}
	return json.Marshal(struct {
		Name string `json:"name"`
		Desc string `json:"desc"`
	}{a.Name, a.Desc})
}

// Source lists who made a scene. An empty Source is "no one".
type Source []Attribution

// String formats the contributors as an English list.
func (s Source) String() string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.String()
	}
	switch len(names) {
	case 0:
		return "no one"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	switch len(s) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(s[0])
	default:
		return json.Marshal([]Attribution(s))
	}
}

type normalDoc struct {
	Type              Type     `json:"type"`
	Passage           string   `json:"passage"`
	Options           []Option `json:"options"`
	Source            Source   `json:"source"`
	OnActivate        string   `json:"onActivate,omitempty"`
	OnFirstActivate   string   `json:"onFirstActivate,omitempty"`
	OnDeactivate      string   `json:"onDeactivate,omitempty"`
	OnFirstDeactivate string   `json:"onFirstDeactivate,omitempty"`
	CSS               string   `json:"css,omitempty"`
	PreloadScenes     []string `json:"preloadScenes,omitempty"`
	Meta              string   `json:"meta,omitempty"`
}

type endingDoc struct {
	Type            Type   `json:"type"`
	Passage         string `json:"passage"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Source          Source `json:"source"`
	OnActivate      string `json:"onActivate,omitempty"`
	OnFirstActivate string `json:"onFirstActivate,omitempty"`
	CSS             string `json:"css,omitempty"`
	Meta            string `json:"meta,omitempty"`
	Views           int    `json:"views,omitempty"`
}

func (n *Normal) MarshalJSON() ([]byte, error) {
	options := n.Options
	if options == nil {
		options = []Option{}
	}
	return json.Marshal(normalDoc{
		Type:              TypeScene,
		Passage:           n.Passage,
		Options:           options,
		Source:            n.Source,
		OnActivate:        n.OnActivate,
		OnFirstActivate:   n.OnFirstActivate,
		OnDeactivate:      n.OnDeactivate,
		OnFirstDeactivate: n.OnFirstDeactivate,
		CSS:               n.CSS,
		PreloadScenes:     n.PreloadScenes,
		Meta:              n.Meta,
	})
}

func (e *Ending) MarshalJSON() ([]byte, error) {
	return json.Marshal(endingDoc{
		Type:            TypeEnding,
		Passage:         e.Passage,
		Title:           e.Title,
		Description:     e.Description,
		Source:          e.Source,
		OnActivate:      e.OnActivate,
		OnFirstActivate: e.OnFirstActivate,
		CSS:             e.CSS,
		Meta:            e.Meta,
		Views:           e.Views,
	})
}
