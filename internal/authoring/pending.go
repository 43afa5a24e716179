package authoring

import "fmt"

// ActionKind names a destructive operation awaiting confirmation.
type ActionKind string

const (
	ActionDeleteScene  ActionKind = "delete_scene"
	ActionDeleteChoice ActionKind = "delete_choice"
	ActionRemoveSprite ActionKind = "remove_sprite"
)

// PendingAction is a destructive operation the caller must Confirm or Cancel
// before anything changes. A session holds at most one.
type PendingAction struct {
	Kind     ActionKind `json:"kind"`
	Index    int        `json:"index"`
	SceneID  string     `json:"scene_id,omitempty"`
	ChoiceID string     `json:"choice_id,omitempty"`
	SpriteID string     `json:"sprite_id,omitempty"`
	Prompt   string     `json:"prompt"`
}

// Pending returns the outstanding action, if any.
func (s *Session) Pending() *PendingAction { return s.pending }

func (s *Session) stage(action *PendingAction) *PendingAction {
	if s.pending != nil {
		s.logger.Debug("replacing unresolved action", map[string]interface{}{"kind": string(s.pending.Kind)})
	}
	s.pending = action
	return action
}

// Cancel drops action without applying it.
func (s *Session) Cancel(action *PendingAction) bool {
	if action == nil || action != s.pending {
		return false
	}
	s.pending = nil
	return true
}

// Confirm applies action. It returns false when action is not the one the
// session is waiting on, or when its target no longer exists.
func (s *Session) Confirm(action *PendingAction) bool {
	if action == nil || action != s.pending {
		return false
	}
	s.pending = nil

	switch action.Kind {
	case ActionDeleteScene:
		return s.deleteScene(action.Index)
	case ActionDeleteChoice:
		return s.deleteChoice(action)
	case ActionRemoveSprite:
		return s.removeSprite(action.SpriteID)
	default:
		return false
	}
}

// RequestDeleteScene stages deletion of scene index.
func (s *Session) RequestDeleteScene(index int) *PendingAction {
	if index < 0 || index >= len(s.novel.Scenes) {
		return nil
	}
	return s.stage(&PendingAction{
		Kind:   ActionDeleteScene,
		Index:  index,
		Prompt: fmt.Sprintf("Delete scene %d? Its choices and sprites will be lost.", index+1),
	})
}

// RequestDeleteChoice stages deletion of choice index in the working buffer.
func (s *Session) RequestDeleteChoice(index int) *PendingAction {
	if !s.hasActive() || index < 0 || index >= len(s.work.Choices) {
		return nil
	}
	return s.stage(&PendingAction{
		Kind:     ActionDeleteChoice,
		Index:    index,
		SceneID:  s.novel.Scenes[s.current].ID,
		ChoiceID: s.work.Choices[index].ID,
		Prompt:   "Delete this choice?",
	})
}
