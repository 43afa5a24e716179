package authoring

import "github.com/Corphon/NovelBuilder/internal/models"

// AddChoice appends a choice to the working buffer. It targets scene 2 when
// there is one, scene 1 otherwise.
func (s *Session) AddChoice() (int, bool) {
	if !s.hasActive() {
		return -1, false
	}
	target := 1
	if len(s.novel.Scenes) > 1 {
		target = 2
	}
	s.work.Choices = append(s.work.Choices, models.Choice{
		ID:        s.newID("choice"),
		NextScene: target,
	})
	return len(s.work.Choices) - 1, true
}

// UpdateChoiceText sets the text of choice index.
func (s *Session) UpdateChoiceText(index int, text string) {
	if index < 0 || index >= len(s.work.Choices) {
		return
	}
	s.work.Choices[index].Text = text
}

// UpdateChoiceNextScene sets the target ordinal of choice index. The value is
// stored as given; playback tolerates targets that do not exist.
func (s *Session) UpdateChoiceNextScene(index, ordinal int) {
	if index < 0 || index >= len(s.work.Choices) {
		return
	}
	s.work.Choices[index].NextScene = ordinal
}

// MoveChoiceUp swaps choice index with the one above it.
func (s *Session) MoveChoiceUp(index int) {
	if index <= 0 || index >= len(s.work.Choices) {
		return
	}
	s.work.Choices[index], s.work.Choices[index-1] = s.work.Choices[index-1], s.work.Choices[index]
}

// MoveChoiceDown swaps choice index with the one below it.
func (s *Session) MoveChoiceDown(index int) {
	if index < 0 || index >= len(s.work.Choices)-1 {
		return
	}
	s.work.Choices[index], s.work.Choices[index+1] = s.work.Choices[index+1], s.work.Choices[index]
}

// deleteChoice removes the choice action was staged for. It refuses when the
// active scene changed or the choice is gone.
func (s *Session) deleteChoice(action *PendingAction) bool {
	if !s.hasActive() || s.novel.Scenes[s.current].ID != action.SceneID {
		return false
	}
	index := s.choiceIndex(action)
	if index < 0 {
		return false
	}
	s.work.Choices = append(s.work.Choices[:index], s.work.Choices[index+1:]...)
	return true
}

func (s *Session) choiceIndex(action *PendingAction) int {
	if action.ChoiceID == "" {
		// choices loaded without ids can only be matched by position
		if action.Index >= 0 && action.Index < len(s.work.Choices) && s.work.Choices[action.Index].ID == "" {
			return action.Index
		}
		return -1
	}
	for i, choice := range s.work.Choices {
		if choice.ID == action.ChoiceID {
			return i
		}
	}
	return -1
}
