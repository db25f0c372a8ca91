package state

import (
	"github.com/jwebster45206/scene-engine/pkg/ftm"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// View is everything a renderer needs to draw the current scene.
type View struct {
	SceneID   string          `json:"scene_id"`
	PrevScene string          `json:"prev_scene"`
	Title     string          `json:"title"`
	Loading   bool            `json:"loading,omitempty"`
	Type      scene.Type      `json:"type,omitempty"`
	Meta      string          `json:"meta,omitempty"`
	CSS       string          `json:"css,omitempty"`
	Passage   []ftm.Paragraph `json:"passage,omitempty"`
	Options   []OptionView    `json:"options,omitempty"`
	Ending    *EndingView     `json:"ending,omitempty"`
	Source    string          `json:"source,omitempty"`

	// AchievedEndings is filled on the endings scene.
	AchievedEndings []string `json:"achieved_endings,omitempty"`
}

// OptionView is a rendered option. Index is what Choose expects.
type OptionView struct {
	Index     int       `json:"index"`
	Separator bool      `json:"separator,omitempty"`
	Label     []ftm.Run `json:"label,omitempty"`
	Disabled  bool      `json:"disabled,omitempty"`
}

// EndingView carries an ending's rendered title and description.
type EndingView struct {
	Title       []ftm.Run       `json:"title"`
	Description []ftm.Paragraph `json:"description"`
}

// EndGameLabel is the single option offered on an ending.
const EndGameLabel = "End Game"

// maxViewAttempts bounds rebuilding when rendering itself fails a script
// and moves the game to the runtime-error scene.
const maxViewAttempts = 3

// View renders the current scene. Rendering evaluates embedded expressions,
// which may assign variables or fail into the runtime-error scene; the view
// always describes the scene the game ends up on.
func (g *Game) View() View {
	var v View
	for range maxViewAttempts {
		at := g.gs.Scene
		v = g.buildView()
		if g.gs.Scene == at {
			break
		}
	}
	return v
}

func (g *Game) buildView() View {
	v := View{
		SceneID:   g.gs.Scene,
		PrevScene: g.gs.PrevScene,
		Title:     g.gs.Title,
	}
	if v.Title == "" {
		v.Title = g.cfg.Title
	}
	s := g.Scene()
	if s == nil {
		v.Loading = true
		return v
	}

	base := s.Common()
	v.Type = s.Type()
	v.Meta = base.Meta
	v.CSS = base.CSS
	v.Passage = ftm.Render(base.Passage, g, ftm.Options{})
	if len(base.Source) > 0 {
		v.Source = base.Source.String()
	}
	if base.Meta == scene.MetaEndings {
		v.AchievedEndings = g.endings.List()
	}

	switch s := s.(type) {
	case *scene.Normal:
		for _, o := range VisibleOptions(s, g) {
			if o.Separator {
				v.Options = append(v.Options, OptionView{Index: -1, Separator: true})
				continue
			}
			v.Options = append(v.Options, OptionView{
				Index:    o.Index,
				Label:    ftm.RenderInline(o.Option.Label, g, ftm.Options{}),
				Disabled: o.Disabled,
			})
		}
	case *scene.Ending:
		v.Ending = &EndingView{
			Title:       ftm.RenderInline(s.Title, g, ftm.Options{}),
			Description: ftm.Render(s.Description, g, ftm.Options{}),
		}
		v.Options = []OptionView{{Index: 0, Label: []ftm.Run{{Text: EndGameLabel}}}}
	}
	return v
}
