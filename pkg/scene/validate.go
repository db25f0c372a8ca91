package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
)

// ValidationError names the offending field and what is wrong with it.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	return e.Path + " " + e.Msg
}

func invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

var (
	normalKeys = []string{
		"type", "passage", "options", "source", "onActivate", "onFirstActivate",
		"onDeactivate", "onFirstDeactivate", "css", "preloadScenes", "meta",
	}
	endingKeys = []string{
		"type", "passage", "title", "description", "source", "onActivate",
		"onFirstActivate", "css", "meta", "views",
	}
	optionKeys      = []string{"label", "to", "isVisible", "isDisabled", "onActivate"}
	attributionKeys = []string{"name", "desc"}
)

// Validate checks a generically decoded document (the output of
// encoding/json or yaml.v3 into an any) and builds the typed scene. It stops
// at the first problem.
func Validate(doc any) (Scene, error) {
	return validateScene(doc, "scene")
}

func validateScene(doc any, name string) (Scene, error) {
	obj, ok := asObject(doc)
	if !ok {
		return nil, invalid(name, "is not an object.")
	}

	typ, ok := obj["type"]
	if !ok {
		return nil, invalid(name+".type", "is missing")
	}
	typName, ok := typ.(string)
	if !ok {
		return nil, invalid(name+".type", "is not type `string`")
	}
	if _, ok := obj["source"]; !ok {
		return nil, invalid(name+".source", "is missing")
	}
	passage, err := requireString(obj, name, "passage")
	if err != nil {
		return nil, err
	}
	source, err := validateSource(obj["source"], name+".source")
	if err != nil {
		return nil, err
	}

	base := Base{Passage: passage, Source: source}
	for _, f := range []struct {
		field string
		dst   *string
	}{
		{"css", &base.CSS},
		{"onActivate", &base.OnActivate},
		{"onFirstActivate", &base.OnFirstActivate},
		{"meta", &base.Meta},
	} {
		if *f.dst, err = optionalString(obj, name, f.field); err != nil {
			return nil, err
		}
	}

	switch Type(typName) {
	case TypeScene:
		return validateNormal(obj, name, base)
	case TypeEnding:
		return validateEnding(obj, name, base)
	default:
		return nil, invalid(name+".type", "must be %q or %q, got %q", TypeScene, TypeEnding, typName)
	}
}

func validateNormal(obj map[string]any, name string, base Base) (Scene, error) {
	if err := noExtraKeys(obj, name, normalKeys); err != nil {
		return nil, err
	}
	n := &Normal{Base: base}

	raw, ok := obj["options"]
	if !ok {
		return nil, invalid(name+".options", "is missing")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid(name+".options", "is not type `Option[]`")
	}
	n.Options = make([]Option, 0, len(list))
	for i, item := range list {
		opt, err := validateOption(item, fmt.Sprintf("%s.options[%d]", name, i))
		if err != nil {
			return nil, err
		}
		n.Options = append(n.Options, opt)
	}

	if raw, ok := obj["preloadScenes"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, invalid(name+".preloadScenes", "is not type `string[]|undefined`")
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(name+".preloadScenes", "is not type `string[]|undefined`")
			}
			n.PreloadScenes = append(n.PreloadScenes, s)
		}
	}

	var err error
	if n.OnDeactivate, err = optionalString(obj, name, "onDeactivate"); err != nil {
		return nil, err
	}
	if n.OnFirstDeactivate, err = optionalString(obj, name, "onFirstDeactivate"); err != nil {
		return nil, err
	}
	return n, nil
}

func validateEnding(obj map[string]any, name string, base Base) (Scene, error) {
	if err := noExtraKeys(obj, name, endingKeys); err != nil {
		return nil, err
	}
	e := &Ending{Base: base}

	var err error
	if e.Title, err = requireString(obj, name, "title"); err != nil {
		return nil, err
	}
	if e.Description, err = requireString(obj, name, "description"); err != nil {
		return nil, err
	}
	if raw, ok := obj["views"]; ok && raw != nil {
		f, ok := asNumber(raw)
		if !ok {
			return nil, invalid(name+".views", "is not type `number|undefined`")
		}
		e.Views = int(f)
	}
	return e, nil
}

// ValidateOption checks one element of an options list.
func ValidateOption(doc any) (Option, error) {
	return validateOption(doc, "option")
}

func validateOption(doc any, name string) (Option, error) {
	if s, ok := doc.(string); ok {
		if s == separatorLiteral {
			return SeparatorOption, nil
		}
		return Option{}, invalid(name, `is not an object or the string "separator".`)
	}
	obj, ok := asObject(doc)
	if !ok {
		return Option{}, invalid(name, `is not an object or the string "separator".`)
	}
	if err := noExtraKeys(obj, name, optionKeys); err != nil {
		return Option{}, err
	}

	var opt Option
	var err error
	if opt.Label, err = requireString(obj, name, "label"); err != nil {
		return Option{}, err
	}
	if opt.To, err = requireString(obj, name, "to"); err != nil {
		return Option{}, err
	}
	if opt.IsVisible, err = optionalString(obj, name, "isVisible"); err != nil {
		return Option{}, err
	}
	if opt.IsDisabled, err = optionalString(obj, name, "isDisabled"); err != nil {
		return Option{}, err
	}
	if opt.OnActivate, err = optionalString(obj, name, "onActivate"); err != nil {
		return Option{}, err
	}
	return opt, nil
}

func validateSource(raw any, name string) (Source, error) {
	if raw == nil {
		return nil, nil
	}
	if list, ok := raw.([]any); ok {
		src := make(Source, 0, len(list))
		for i, item := range list {
			a, err := validateAttribution(item, fmt.Sprintf("%s[%d]", name, i))
			if err != nil {
				return nil, err
			}
			src = append(src, a)
		}
		return src, nil
	}
	a, err := validateAttribution(raw, name)
	if err != nil {
		return nil, err
	}
	return Source{a}, nil
}

func validateAttribution(raw any, name string) (Attribution, error) {
	if s, ok := raw.(string); ok {
		return Attribution{Name: s}, nil
	}
	obj, ok := asObject(raw)
	if !ok {
		return Attribution{}, invalid(name, "is not type `Source` (see type docs)")
	}
	if err := noExtraKeys(obj, name, attributionKeys); err != nil {
		return Attribution{}, err
	}
	nm, ok := obj["name"].(string)
	if !ok {
		return Attribution{}, invalid(name, "is not type `Source` (see type docs)")
	}
	desc, err := optionalString(obj, name, "desc")
	if err != nil {
		return Attribution{}, err
	}
	return Attribution{Name: nm, Desc: desc}, nil
}

func requireString(obj map[string]any, name, field string) (string, error) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return "", invalid(name+"."+field, "is missing")
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalid(name+"."+field, "is not type `string`")
	}
	return s, nil
}

// optionalString treats an absent or null field as empty.
func optionalString(obj map[string]any, name, field string) (string, error) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalid(name+"."+field, "is not type `string|undefined`")
	}
	return s, nil
}

func noExtraKeys(obj map[string]any, name string, allowed []string) error {
	var extra []string
	for k := range obj {
		if !slices.Contains(allowed, k) {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return invalid(name, "has extra property %q", extra[0])
}

// asObject accepts the map shapes produced by encoding/json and yaml.v3.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
