package scene

import (
	"fmt"
	"strings"
)

// BuiltInNamespace prefixes every scene that ships with the engine.
const BuiltInNamespace = "built-in/"

// IDs of the built-in scenes.
const (
	StartID          = BuiltInNamespace + "start"
	PlayID           = BuiltInNamespace + "play"
	LoadingID        = BuiltInNamespace + "loading"
	FirstEndingID    = BuiltInNamespace + "first-time-introduction"
	CreditsID        = BuiltInNamespace + "credits"
	EndingsID        = BuiltInNamespace + "endings"
	RuntimeErrorID   = BuiltInNamespace + "runtime-error"
	ResetProgressID  = BuiltInNamespace + "reset-progress"
	DefaultStoryID   = "story/start"
	DefaultGameTitle = "Scene Engine"
)

// Meta markers the renderer keys off.
const (
	MetaLoading      = "loading"
	MetaMainMenu     = "main-menu"
	MetaCredits      = "credits"
	MetaEndings      = "endings"
	MetaRuntimeError = "runtime-error"
	MetaNotFound     = "404"
	MetaLoadError    = "loading-error"
)

// IsBuiltIn reports whether id lives in the reserved namespace.
func IsBuiltIn(id string) bool {
	return strings.HasPrefix(id, BuiltInNamespace)
}

const errorCSS = "body{background:#302525}"

var (
	undoOption = Option{
		Label:      `="Go back one step"||(prevScene=="@null"?" (No Previous Scene)":"")`,
		To:         "@undo",
		IsDisabled: `prevScene=="@null"`,
	}
	reloadOption = Option{
		Label:      "Reload Scene",
		To:         "@reload",
		IsDisabled: "__internal_isBuiltInScene(scene)",
	}
	resetOption = Option{
		Label: "Reset all",
		To:    "@reset",
	}
)

// BuiltIns returns fresh copies of the built-in scenes. storyStart is the
// scene built-in/play redirects to.
func BuiltIns(storyStart string) map[string]Scene {
	if storyStart == "" {
		storyStart = DefaultStoryID
	}
	return map[string]Scene{
		LoadingID: &Normal{
			Base:    Base{Meta: MetaLoading},
			Options: []Option{},
		},
		PlayID: &Normal{
			Base:    Base{Meta: RedirectPrefix + storyStart},
			Options: []Option{},
		},
		StartID: &Normal{
			Base: Base{
				Passage: "Welcome. Every choice leads somewhere, and some lead to an **ending**. " +
					"Collect as many as you can.",
				Meta: MetaMainMenu,
			},
			Options: []Option{
				{Label: "Play", To: "@null", OnActivate: `reset("` + PlayID + `")`},
				SeparatorOption,
				{Label: "Credits", To: "credits", IsVisible: "__internal_hasAtLeastOneEnding"},
				{Label: "View Endings", To: "endings", IsVisible: "__internal_hasAtLeastOneEnding"},
				SeparatorOption,
				{Label: "Reset", To: "reset-progress", IsVisible: "__internal_hasAtLeastOneEnding"},
			},
		},
		CreditsID: &Normal{
			Base: Base{
				Passage:    "Every scene names its contributors at the bottom of the page. Thank you to all of them.",
				OnActivate: `oldTitle=title;title="Credits"`,
				Meta:       MetaCredits,
			},
			Options:      []Option{{Label: "Back", To: "@undo"}},
			OnDeactivate: "title=oldTitle",
		},
		EndingsID: &Normal{
			Base: Base{
				Passage:    "You have found ${__internal_achievedEndingCount} ending${__internal_achievedEndingCount==1?\"\":\"s\"}.",
				OnActivate: `oldTitle=title;title="Endings"`,
				Meta:       MetaEndings,
			},
			Options:      []Option{{Label: "Back", To: "@undo"}},
			OnDeactivate: "title=oldTitle",
		},
		FirstEndingID: &Normal{
			Base: Base{
				Passage: "This is a game about endings. Good and bad, there are many ways for a story to finish.\n\n" +
					"You've found your first one. Endings you reach are remembered between plays.",
			},
			Options: []Option{{Label: "*Time to collect some endings!*", To: "@reset"}},
		},
		RuntimeErrorID: &Normal{
			Base: Base{
				Passage: "At scene `${prevScene}` during `${runtimeErrorSource}` a runtime error occurred: " +
					"```${runtimeErrorStack}```\n\nExpression that errored was: ```${runtimeErrorExpression}```",
				CSS:  errorCSS,
				Meta: MetaRuntimeError,
			},
			Options: []Option{
				{Label: "Return to scene.", To: "@undo", IsDisabled: `prevScene=="@null"`},
				resetOption,
			},
		},
		ResetProgressID: &Normal{
			Base: Base{
				Passage:    "Are you really sure?",
				OnActivate: `oldTitle=title;title="Reset all Progress"`,
			},
			Options: []Option{
				{Label: "YES, reset *ALL* my progress", To: "@reset-all-progress"},
				{Label: "No, keep my data", To: "@undo"},
			},
			OnDeactivate: "title=oldTitle",
		},
	}
}

// NotFound is shown in place of a scene the repository does not have.
func NotFound(id string) Scene {
	return &Normal{
		Base: Base{
			Passage: fmt.Sprintf("The scene `%s` doesn't exist.", id),
			Meta:    MetaNotFound,
		},
		Options: []Option{undoOption, reloadOption, resetOption},
	}
}

// LoadError is shown in place of a scene that failed to fetch or validate.
func LoadError(id string, err error) Scene {
	return &Normal{
		Base: Base{
			Passage: fmt.Sprintf("An Error Occurred in scene `%s`\n\n```%v```", id, err),
			CSS:     errorCSS,
			Meta:    MetaLoadError,
		},
		Options: []Option{undoOption, reloadOption, resetOption},
	}
}
