package state

import (
	"fmt"

	"github.com/jwebster45206/scene-engine/pkg/expr"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// Names scene scripts can read but not assign.
const (
	VarScene           = "scene"
	VarPrevScene       = "prevScene"
	VarTitle           = "title"
	VarProduction      = "__internal_PRODUCTION"
	VarPreview         = "__internal_isSceneEditorPreview"
	VarHasEnding       = "__internal_hasAtLeastOneEnding"
	VarEndingCount     = "__internal_achievedEndingCount"
	FuncIsBuiltInScene = "__internal_isBuiltInScene"
)

// Get implements expr.Env.
func (g *Game) Get(name string) (expr.Value, bool) {
	switch name {
	case VarScene:
		return expr.String(g.gs.Scene), true
	case VarPrevScene:
		return expr.String(g.gs.PrevScene), true
	case VarTitle:
		return expr.String(g.gs.Title), true
	case VarProduction:
		return expr.Bool(g.cfg.Production), true
	case VarPreview:
		return expr.Bool(g.cfg.Preview), true
	case VarHasEnding:
		return expr.Bool(g.endings.CountAchieved() > 0), true
	case VarEndingCount:
		return expr.Number(float64(g.endings.CountAchieved())), true
	}
	if fn, ok := g.funcs[name]; ok {
		return fn, true
	}
	v, ok := g.gs.Vars[name]
	return v, ok
}

// Set implements expr.Env. Control fields and engine values are read-only.
func (g *Game) Set(name string, v expr.Value) error {
	switch name {
	case VarTitle:
		if k := v.Kind(); k == expr.KindUndefined || k == expr.KindNull {
			g.gs.Title = ""
		} else {
			g.gs.Title = v.String()
		}
		return nil
	case VarScene, VarPrevScene:
		return fmt.Errorf("%s is controlled by the engine; use goToScene", name)
	case VarProduction, VarPreview, VarHasEnding, VarEndingCount:
		return fmt.Errorf("%s is read-only", name)
	}
	if _, ok := g.funcs[name]; ok {
		return fmt.Errorf("%s is read-only", name)
	}
	g.gs.Vars[name] = v
	return nil
}

func (g *Game) scriptFuncs() map[string]expr.Value {
	return map[string]expr.Value{
		"goToScene": expr.Function(func(args []expr.Value) (expr.Value, error) {
			if len(args) != 1 {
				return expr.Undefined, fmt.Errorf("expects 1 argument, got %d", len(args))
			}
			g.navigate(args[0].String())
			return expr.Undefined, nil
		}),
		"reset": expr.Function(func(args []expr.Value) (expr.Value, error) {
			var id string
			if len(args) > 0 && !args[0].IsUndefined() {
				id = args[0].String()
			}
			g.reset(id)
			return expr.Undefined, nil
		}),
		"isEndingAchieved": idFunc(func(id string) expr.Value {
			return expr.Bool(g.endings.IsAchieved(id))
		}),
		"setEndingAsAchieved": idFunc(func(id string) expr.Value {
			g.endings.MarkAchieved(id)
			return expr.Undefined
		}),
		"setEndingAsNotAchieved": idFunc(func(id string) expr.Value {
			g.endings.MarkNotAchieved(id)
			return expr.Undefined
		}),
		FuncIsBuiltInScene: idFunc(func(id string) expr.Value {
			return expr.Bool(scene.IsBuiltIn(id))
		}),
	}
}

// idFunc adapts a single scene-ID argument function.
func idFunc(f func(id string) expr.Value) expr.Value {
	return expr.Function(func(args []expr.Value) (expr.Value, error) {
		if len(args) != 1 {
			return expr.Undefined, fmt.Errorf("expects 1 argument, got %d", len(args))
		}
		return f(args[0].String()), nil
	})
}
