package state

import "github.com/jwebster45206/scene-engine/pkg/scene"

// SceneRepository supplies scene documents by ID.
type SceneRepository interface {
	// GetScene returns the scene, or nil while it is still being fetched.
	// Missing or broken scenes come back as diagnostic scenes, never nil.
	GetScene(id string) scene.Scene
	// Invalidate drops any cached copy so the next GetScene refetches.
	Invalidate(id string)
	// Prefetch starts loading ids in the background.
	Prefetch(ids ...string)
}

// EndingStore records which endings a player has reached.
type EndingStore interface {
	IsAchieved(id string) bool
	MarkAchieved(id string)
	MarkNotAchieved(id string)
	CountAchieved() int
	List() []string
}
