package playback

import (
	"math"

	"github.com/Corphon/NovelBuilder/internal/models"
)

// ChoiceButton is one rendered choice.
type ChoiceButton struct {
	Index  int        `json:"index"`
	Text   string     `json:"text"`
	Kind   ChoiceKind `json:"kind"`
	Target int        `json:"target"`
}

// View is everything a reader needs to draw the current state.
type View struct {
	State       State           `json:"state"`
	Number      int             `json:"number"`
	Total       int             `json:"total"`
	Name        string          `json:"name,omitempty"`
	Text        string          `json:"text,omitempty"`
	Background  string          `json:"background,omitempty"`
	Sprites     []models.Sprite `json:"sprites"`
	Choices     []ChoiceButton  `json:"choices"`
	ShowPrev    bool            `json:"show_prev"`
	ShowNext    bool            `json:"show_next"`
	ShowRestart bool            `json:"show_restart"`
	Progress    int             `json:"progress"`
	EndMessage  string          `json:"end_message,omitempty"`
}

// View projects the current state.
func (e *Engine) View() View {
	v := View{
		State:   e.state,
		Total:   len(e.scenes),
		Sprites: []models.Sprite{},
		Choices: []ChoiceButton{},
	}

	switch e.state.Kind {
	case KindEnd:
		v.EndMessage = e.state.EndMessage
		v.Progress = 100
		v.ShowRestart = true
		return v
	case KindEmpty:
		return v
	}

	i := e.state.Index
	scene := e.scenes[i]
	v.Number = i + 1
	v.Name = scene.Name
	v.Text = scene.Text
	v.Background = scene.Background
	v.Progress = int(math.Round(float64(i+1) / float64(len(e.scenes)) * 100))

	for _, sprite := range scene.Sprites {
		if sprite.IsOnCanvas && sprite.URL != "" {
			v.Sprites = append(v.Sprites, sprite)
		}
	}
	models.SortByZIndex(v.Sprites)

	for k, choice := range scene.Choices {
		v.Choices = append(v.Choices, ChoiceButton{
			Index:  k,
			Text:   choiceLabel(choice, k),
			Kind:   Classify(choice.NextScene, len(e.scenes)),
			Target: choice.NextScene,
		})
	}

	v.ShowPrev = i > 0
	v.ShowNext = len(scene.Choices) == 0 && i < len(e.scenes)-1
	return v
}
