package authoring

import (
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/models"
)

const previewLength = 50

// SceneListItem is one row of the scene list.
type SceneListItem struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Preview     string `json:"preview"`
	SpriteCount int    `json:"sprite_count"`
	Active      bool   `json:"active"`
}

// TargetOption is one entry of a choice's target selector.
type TargetOption struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
}

// SceneList projects the stored scenes in display order.
func (s *Session) SceneList() []SceneListItem {
	items := make([]SceneListItem, 0, len(s.novel.Scenes))
	for i, scene := range s.novel.Scenes {
		name := scene.Name
		if name == "" {
			name = defaultSceneName(i)
		}
		items = append(items, SceneListItem{
			Index:       i,
			ID:          scene.ID,
			Name:        name,
			Preview:     preview(scene.Text),
			SpriteCount: len(scene.Sprites),
			Active:      i == s.current,
		})
	}
	return items
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return text
}

// TargetOptions lists every valid choice target: each scene by ordinal, then
// the end of the story.
func (s *Session) TargetOptions() []TargetOption {
	options := make([]TargetOption, 0, len(s.novel.Scenes)+1)
	for i, scene := range s.novel.Scenes {
		name := scene.Name
		if name == "" {
			name = "Untitled"
		}
		options = append(options, TargetOption{
			Ordinal: i + 1,
			Label:   fmt.Sprintf("Scene %d: %s", i+1, name),
		})
	}
	return append(options, TargetOption{Ordinal: models.EndOfStory, Label: "End of story"})
}
