package state

import (
	"github.com/jwebster45206/scene-engine/pkg/ftm"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// VisibleOption is one entry of the rendered option list: either a kept
// separator or a visible choice.
type VisibleOption struct {
	Index     int // position in the scene's declared options; -1 for separators
	Option    scene.Option
	Separator bool
	Disabled  bool
}

// VisibleOptions filters a scene's options for display. Invisible options are
// dropped. Separators survive only between two visible options, and runs of
// separators collapse to one.
func VisibleOptions(n *scene.Normal, ev ftm.Evaluator) []VisibleOption {
	var out []VisibleOption
	seenChoice, pendingSeparator := false, false
	for i, opt := range n.Options {
		if opt.Separator {
			pendingSeparator = seenChoice
			continue
		}
		if opt.IsVisible != "" && !ev.Eval(opt.IsVisible, "option.isVisible").Truthy() {
			continue
		}
		if pendingSeparator {
			out = append(out, VisibleOption{Index: -1, Option: scene.SeparatorOption, Separator: true})
			pendingSeparator = false
		}
		disabled := opt.IsDisabled != "" && ev.Eval(opt.IsDisabled, "option.isDisabled").Truthy()
		out = append(out, VisibleOption{Index: i, Option: opt, Disabled: disabled})
		seenChoice = true
	}
	return out
}

// guards evaluates an option's visibility and disabled state.
func (g *Game) guards(opt scene.Option) (visible, disabled bool) {
	visible = opt.IsVisible == "" || g.Eval(opt.IsVisible, "option.isVisible").Truthy()
	if !visible {
		return false, false
	}
	disabled = opt.IsDisabled != "" && g.Eval(opt.IsDisabled, "option.isDisabled").Truthy()
	return visible, disabled
}

// VisibleOptions applies the visibility policy to the current scene. Endings
// and loading scenes have none.
func (g *Game) VisibleOptions() []VisibleOption {
	n, ok := g.Scene().(*scene.Normal)
	if !ok {
		return nil
	}
	return VisibleOptions(n, g)
}
