package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/scene-engine/pkg/expr"
	"github.com/jwebster45206/scene-engine/pkg/link"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// sceneFile is one content file and the scene ID it is served under.
type sceneFile struct {
	Path string
	ID   string
}

// SceneValidator checks content files and collects every problem instead of
// stopping at the first.
type SceneValidator struct {
	valid    map[string]scene.Scene
	errors   map[string][]string
	warnings map[string][]string
}

func NewSceneValidator() *SceneValidator {
	return &SceneValidator{
		valid:    make(map[string]scene.Scene),
		errors:   make(map[string][]string),
		warnings: make(map[string][]string),
	}
}

// collectFiles expands args into scene files. A directory is walked and IDs
// are paths relative to it; a single file is named by its parent directory
// and base name.
func collectFiles(args []string) ([]sceneFile, error) {
	var files []sceneFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, sceneFile{
				Path: arg,
				ID:   sceneID(filepath.Base(filepath.Dir(arg)), filepath.Base(arg)),
			})
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !slices.Contains(scene.Extensions, filepath.Ext(path)) {
				return nil
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			files = append(files, sceneFile{Path: path, ID: sceneID(filepath.Dir(rel), filepath.Base(rel))})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func sceneID(dir, base string) string {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "." || dir == "" {
		return name
	}
	return filepath.ToSlash(filepath.Join(dir, name))
}

// Validate parses every file, then checks scripts and links across the set.
func (v *SceneValidator) Validate(files []sceneFile) {
	seen := make(map[string]string)
	for _, f := range files {
		if !strings.Contains(f.ID, "/") {
			v.addError(f.Path, fmt.Sprintf("scene ID %q must be namespaced (namespace/name)", f.ID))
			continue
		}
		if other, ok := seen[f.ID]; ok {
			v.addError(f.Path, fmt.Sprintf("scene ID %q is also defined by %s", f.ID, other))
			continue
		}
		seen[f.ID] = f.Path
		s, err := scene.ParseFile(f.Path)
		if err != nil {
			v.addError(f.Path, err.Error())
			continue
		}
		v.valid[f.ID] = s
	}

	for _, f := range files {
		s, ok := v.valid[f.ID]
		if !ok {
			continue
		}
		v.checkScripts(f.Path, s)
		v.checkLinks(f.Path, f.ID, s)
	}
}

func (v *SceneValidator) checkScripts(path string, s scene.Scene) {
	base := s.Common()
	scripts := map[string]string{
		"onActivate":      base.OnActivate,
		"onFirstActivate": base.OnFirstActivate,
	}
	if n, ok := s.(*scene.Normal); ok {
		scripts["onDeactivate"] = n.OnDeactivate
		scripts["onFirstDeactivate"] = n.OnFirstDeactivate
		for i, o := range n.Options {
			prefix := fmt.Sprintf("options[%d].", i)
			scripts[prefix+"isVisible"] = o.IsVisible
			scripts[prefix+"isDisabled"] = o.IsDisabled
			scripts[prefix+"onActivate"] = o.OnActivate
		}
	}

	fields := make([]string, 0, len(scripts))
	for field := range scripts {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		src := scripts[field]
		if src == "" {
			continue
		}
		if err := expr.Check(src); err != nil {
			v.addError(path, fmt.Sprintf("%s: %v", field, err))
		}
	}
}

// checkLinks warns about option targets that are not among the validated
// files. The target may still exist elsewhere, so it is not an error.
func (v *SceneValidator) checkLinks(path, id string, s scene.Scene) {
	n, ok := s.(*scene.Normal)
	if !ok {
		return
	}
	targets := slices.Clone(n.PreloadScenes)
	for _, o := range n.Options {
		if !o.Separator {
			targets = append(targets, o.To)
		}
	}
	for _, to := range targets {
		if to == "" || link.IsControl(to) || link.IsExternal(to) {
			continue
		}
		target := link.Join(id, to)
		if strings.HasPrefix(target, scene.BuiltInNamespace) {
			continue
		}
		if _, ok := v.valid[target]; !ok {
			v.addWarning(path, fmt.Sprintf("link %q resolves to %s, which was not validated", to, target))
		}
	}
}

func (v *SceneValidator) addError(path, msg string) {
	v.errors[path] = append(v.errors[path], "  - "+msg)
}

func (v *SceneValidator) addWarning(path, msg string) {
	v.warnings[path] = append(v.warnings[path], "  - "+msg)
}

// Valid returns the scenes that passed, keyed by ID. A file with script
// errors is excluded.
func (v *SceneValidator) Valid(files []sceneFile) map[string]scene.Scene {
	out := make(map[string]scene.Scene)
	for _, f := range files {
		if s, ok := v.valid[f.ID]; ok && len(v.errors[f.Path]) == 0 {
			out[f.ID] = s
		}
	}
	return out
}

func (v *SceneValidator) HasErrors() bool { return len(v.errors) > 0 }
