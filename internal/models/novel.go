// internal/models/novel.go
package models

import (
	"sort"
	"time"
)

// EndOfStory is the choice target meaning "end of the story".
const EndOfStory = 0

// Default size of a placed sprite.
const (
	DefaultSpriteWidth  = 150
	DefaultSpriteHeight = 200
)

// Novel is a branching visual novel.
type Novel struct {
	ID          int64     `json:"id" yaml:"id"`
	AuthorID    string    `json:"author_id,omitempty" yaml:"author_id,omitempty"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	CoverImage  string    `json:"cover_image,omitempty" yaml:"cover_image,omitempty"`
	IsPublished bool      `json:"is_published" yaml:"is_published"`
	Scenes      []Scene   `json:"scenes" yaml:"scenes"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Scene is one scene of a novel.
type Scene struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Text       string   `json:"text" yaml:"text"`
	Background string   `json:"background" yaml:"background,omitempty"`
	Order      int      `json:"order" yaml:"order"`
	Choices    []Choice `json:"choices" yaml:"choices"`
	Sprites    []Sprite `json:"sprites" yaml:"sprites"`
}

// Choice is one reader choice in a scene.
// NextScene is a 1-based ordinal into the scene sequence; 0 ends the story.
type Choice struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	NextScene int    `json:"nextScene" yaml:"next_scene"`
}

// Sprite is a character image in a scene.
// When IsOnCanvas is false it only lives in the palette and has no geometry.
type Sprite struct {
	ID         string  `json:"id" yaml:"id"`
	URL        string  `json:"url" yaml:"url"`
	Name       string  `json:"name" yaml:"name"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	Width      float64 `json:"width" yaml:"width"`
	Height     float64 `json:"height" yaml:"height"`
	Rotation   float64 `json:"rotation" yaml:"rotation"`
	ZIndex     int     `json:"zIndex" yaml:"z_index"`
	IsOnCanvas bool    `json:"isOnCanvas" yaml:"is_on_canvas"`
}

// NovelPayload is the body of a save request.
type NovelPayload struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	IsPublished bool    `json:"is_published" yaml:"is_published"`
	Scenes      []Scene `json:"scenes" yaml:"scenes"`
}

// NovelSummary is a row of a novel listing.
type NovelSummary struct {
	ID          int64     `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverImage  string    `json:"cover_image,omitempty"`
	IsPublished bool      `json:"is_published"`
	SceneCount  int       `json:"scene_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payload returns the savable part of the novel.
func (n *Novel) Payload() NovelPayload {
	return NovelPayload{
		Title:       n.Title,
		Description: n.Description,
		IsPublished: n.IsPublished,
		Scenes:      CloneScenes(n.Scenes),
	}
}

// Summary builds listing metadata.
func (n *Novel) Summary() NovelSummary {
	return NovelSummary{
		ID:          n.ID,
		AuthorID:    n.AuthorID,
		Title:       n.Title,
		Description: n.Description,
		CoverImage:  n.CoverImage,
		IsPublished: n.IsPublished,
		SceneCount:  len(n.Scenes),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// SortScenes stable-sorts by order; equal orders keep their relative position.
func SortScenes(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].Order < scenes[j].Order
	})
}

// RenumberScenes reassigns dense order values from slice position.
func RenumberScenes(scenes []Scene) {
	for i := range scenes {
		scenes[i].Order = i
	}
}

// Normalize sorts and renumbers, and replaces nil slices with empty ones.
func Normalize(scenes []Scene) {
	SortScenes(scenes)
	RenumberScenes(scenes)
	for i := range scenes {
		if scenes[i].Choices == nil {
			scenes[i].Choices = []Choice{}
		}
		if scenes[i].Sprites == nil {
			scenes[i].Sprites = []Sprite{}
		}
	}
}

// OrdersDense reports whether the orders are exactly 0..N-1.
func OrdersDense(scenes []Scene) bool {
	for i, scene := range scenes {
		if scene.Order != i {
			return false
		}
	}
	return true
}

// CloneScene deep-copies a scene.
func CloneScene(scene Scene) Scene {
	out := scene
	out.Choices = append([]Choice{}, scene.Choices...)
	out.Sprites = append([]Sprite{}, scene.Sprites...)
	return out
}

// CloneScenes deep-copies a scene sequence.
func CloneScenes(scenes []Scene) []Scene {
	out := make([]Scene, len(scenes))
	for i, scene := range scenes {
		out[i] = CloneScene(scene)
	}
	return out
}

// PlacedSprites returns the sprites placed on the canvas.
func PlacedSprites(sprites []Sprite) []Sprite {
	placed := make([]Sprite, 0, len(sprites))
	for _, sprite := range sprites {
		if sprite.IsOnCanvas {
			placed = append(placed, sprite)
		}
	}
	return placed
}

// SortByZIndex stable-sorts by ascending zIndex (lower layers draw first).
func SortByZIndex(sprites []Sprite) {
	sort.SliceStable(sprites, func(i, j int) bool {
		return sprites[i].ZIndex < sprites[j].ZIndex
	})
}
