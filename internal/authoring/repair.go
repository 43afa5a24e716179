package authoring

import "github.com/Corphon/NovelBuilder/internal/models"

// RepairTarget maps a choice target across the removal of the scene at
// removed (0-based). Targets pointing past it shift down, targets pointing at
// it become the end of the story.
func RepairTarget(target, removed int) int {
	ordinal := removed + 1
	switch {
	case target > ordinal:
		return target - 1
	case target == ordinal:
		return models.EndOfStory
	default:
		return target
	}
}

// RemoveScene returns a new scene slice without scenes[index], with dense
// order values and every choice target repaired. The input is not modified.
func RemoveScene(scenes []models.Scene, index int) []models.Scene {
	if index < 0 || index >= len(scenes) {
		return models.CloneScenes(scenes)
	}

	out := make([]models.Scene, 0, len(scenes)-1)
	for i, scene := range scenes {
		if i == index {
			continue
		}
		out = append(out, models.CloneScene(scene))
	}

	models.RenumberScenes(out)
	for i := range out {
		for j := range out[i].Choices {
			out[i].Choices[j].NextScene = RepairTarget(out[i].Choices[j].NextScene, index)
		}
	}
	return out
}

func (s *Session) deleteScene(index int) bool {
	if index < 0 || index >= len(s.novel.Scenes) {
		return false
	}
	removed := s.novel.Scenes[index].ID
	s.endDrag(false)
	s.novel.Scenes = RemoveScene(s.novel.Scenes, index)
	s.current = NoScene

	if len(s.novel.Scenes) == 0 {
		s.AddScene()
	} else {
		s.SelectScene(max(0, index-1))
	}

	s.logger.Info("scene deleted", map[string]interface{}{
		"index":     index,
		"scene_id":  removed,
		"remaining": len(s.novel.Scenes),
	})
	return true
}
