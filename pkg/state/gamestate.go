package state

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"

	"github.com/jwebster45206/scene-engine/pkg/expr"
	"github.com/jwebster45206/scene-engine/pkg/link"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// Variables the runtime-error scene reads.
const (
	VarErrorSource     = "runtimeErrorSource"
	VarErrorStack      = "runtimeErrorStack"
	VarErrorExpression = "runtimeErrorExpression"
)

// GameState is one play session's mutable environment. Scene and PrevScene
// are owned by Game; Vars hold everything scene scripts assign.
type GameState struct {
	ID        uuid.UUID             `json:"id"`
	Player    string                `json:"player,omitempty"` // owner of ending progress
	Scene     string                `json:"scene"`
	PrevScene string                `json:"prevScene"`
	Title     string                `json:"title"`
	Visited   VisitedSet            `json:"visitedScenes"`  // activated at least once
	Departed  VisitedSet            `json:"departedScenes"` // deactivated at least once
	Vars      map[string]expr.Value `json:"vars"`

	// Pending is set while Scene's activation hooks wait for the scene to load.
	Pending bool `json:"pending,omitempty"`
}

// NewGameState returns an empty state sitting on the @null sentinel.
func NewGameState() *GameState {
	return &GameState{
		ID:        uuid.New(),
		Scene:     link.Null,
		PrevScene: link.Null,
		Title:     scene.DefaultGameTitle,
		Visited:   NewVisitedSet(),
		Departed:  NewVisitedSet(),
		Vars:      make(map[string]expr.Value),
	}
}

// clear drops every custom variable and all visit bookkeeping.
func (gs *GameState) clear(title string) {
	gs.Vars = make(map[string]expr.Value)
	gs.Visited = NewVisitedSet()
	gs.Departed = NewVisitedSet()
	gs.Title = title
	gs.Scene = link.Null
	gs.PrevScene = link.Null
	gs.Pending = false
}

func (gs *GameState) clearRuntimeError() {
	delete(gs.Vars, VarErrorSource)
	delete(gs.Vars, VarErrorStack)
	delete(gs.Vars, VarErrorExpression)
}

// normalize fills fields a decoded or hand-built state may lack.
func (gs *GameState) normalize() {
	if gs.Vars == nil {
		gs.Vars = make(map[string]expr.Value)
	}
	if gs.Visited.set == nil {
		gs.Visited = NewVisitedSet()
	}
	if gs.Departed.set == nil {
		gs.Departed = NewVisitedSet()
	}
	if gs.Scene == "" {
		gs.Scene = link.Null
	}
	if gs.PrevScene == "" {
		gs.PrevScene = link.Null
	}
}

// VisitedSet is a set of scene IDs.
type VisitedSet struct {
	set *mapset.Set[string]
}

func NewVisitedSet(ids ...string) VisitedSet {
	s := mapset.New[string]()
	for _, id := range ids {
		s.Put(id)
	}
	return VisitedSet{set: &s}
}

func (v VisitedSet) Has(id string) bool {
	return v.set != nil && v.set.Has(id)
}

func (v VisitedSet) Put(id string) {
	v.set.Put(id)
}

func (v VisitedSet) Len() int {
	if v.set == nil {
		return 0
	}
	return v.set.Size()
}

// IDs returns the members sorted.
func (v VisitedSet) IDs() []string {
	ids := make([]string, 0, v.Len())
	if v.set != nil {
		v.set.Each(func(id string) {
			ids = append(ids, id)
		})
	}
	sort.Strings(ids)
	return ids
}

func (v VisitedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.IDs())
}

func (v *VisitedSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*v = NewVisitedSet(ids...)
	return nil
}
