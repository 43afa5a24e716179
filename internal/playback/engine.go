// Package playback walks a published novel. The engine is a small state
// machine over an immutable scene graph; it never performs I/O.
package playback

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/utils"
)

// Kind is the kind of a playback state.
type Kind string

const (
	KindScene Kind = "scene"
	KindEnd   Kind = "end"
	KindEmpty Kind = "empty"
)

// DefaultEndMessage is shown when the story ends without a choice.
const DefaultEndMessage = "Congratulations! You have reached the end of the novel."

// State is a position in the story. Index is meaningful only for KindScene.
type State struct {
	Kind       Kind   `json:"kind"`
	Index      int    `json:"index"`
	EndMessage string `json:"end_message,omitempty"`
}

func sceneState(i int) State { return State{Kind: KindScene, Index: i} }

func endState(message string) State {
	if message == "" {
		message = DefaultEndMessage
	}
	return State{Kind: KindEnd, Index: -1, EndMessage: message}
}

var emptyState = State{Kind: KindEmpty, Index: -1}

// String renders the state compactly, e.g. Scene(2), End or Empty.
func (s State) String() string {
	switch s.Kind {
	case KindScene:
		return fmt.Sprintf("Scene(%d)", s.Index)
	case KindEnd:
		return "End"
	default:
		return "Empty"
	}
}

// Engine holds the scene graph and the reader's position. It is not safe
// for concurrent use.
type Engine struct {
	scenes []models.Scene
	state  State
	logger *utils.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *utils.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine over a copy of scenes, sorted by order. It starts at
// the first scene, or in the empty state when there are none.
func New(scenes []models.Scene, opts ...Option) *Engine {
	graph := models.CloneScenes(scenes)
	models.SortScenes(graph)

	e := &Engine{scenes: graph, logger: utils.NopLogger()}
	for _, opt := range opts {
		opt(e)
	}
	e.state = e.initial()
	return e
}

// Load decodes a serialized novel, or a bare scene array, and starts an
// engine over its scenes.
// Malformed or missing data yields an engine in the empty state.
func Load(data []byte, opts ...Option) *Engine {
	if len(data) == 0 {
		return New(nil, opts...)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var scenes []models.Scene
		if err := json.Unmarshal(trimmed, &scenes); err == nil {
			return New(scenes, opts...)
		}
	}
	novel, err := models.DecodeNovel(data)
	if err != nil {
		e := New(nil, opts...)
		e.logger.Warn("novel data could not be decoded", map[string]interface{}{"error": err.Error()})
		return e
	}
	return New(novel.Scenes, opts...)
}

func (e *Engine) initial() State {
	if len(e.scenes) == 0 {
		return emptyState
	}
	return sceneState(0)
}

// State returns the current position.
func (e *Engine) State() State { return e.state }

// SceneCount returns the number of scenes in the graph.
func (e *Engine) SceneCount() int { return len(e.scenes) }

// Scene returns the current scene when the engine is on one.
func (e *Engine) Scene() (models.Scene, bool) {
	if e.state.Kind != KindScene {
		return models.Scene{}, false
	}
	return e.scenes[e.state.Index], true
}

// Advance moves to the next scene, or ends the story after the last one.
func (e *Engine) Advance() State {
	if e.state.Kind != KindScene {
		return e.state
	}
	if next := e.state.Index + 1; next < len(e.scenes) {
		e.state = sceneState(next)
	} else {
		e.state = endState("")
	}
	return e.state
}

// Choose follows choice k of the current scene. A target of 0 ends the story
// with the choice text as the end message; a target outside the graph falls
// back to Advance. An index outside the scene's choices changes nothing.
func (e *Engine) Choose(k int) State {
	if e.state.Kind != KindScene {
		return e.state
	}
	choices := e.scenes[e.state.Index].Choices
	if k < 0 || k >= len(choices) {
		return e.state
	}
	choice := choices[k]

	switch Classify(choice.NextScene, len(e.scenes)) {
	case ChoiceEnd:
		e.state = endState(choiceLabel(choice, k))
	case ChoiceJump:
		e.state = sceneState(choice.NextScene - 1)
	default:
		e.logger.Debug("choice target outside graph, advancing", map[string]interface{}{
			"scene":  e.state.Index,
			"choice": k,
			"target": choice.NextScene,
		})
		return e.Advance()
	}
	return e.state
}

// Back returns to the previous scene in sequence.
func (e *Engine) Back() State {
	if e.state.Kind == KindScene && e.state.Index > 0 {
		e.state = sceneState(e.state.Index - 1)
	}
	return e.state
}

// Restart goes back to the first scene once the story has ended.
func (e *Engine) Restart() State {
	if e.state.Kind == KindEnd {
		e.state = e.initial()
	}
	return e.state
}

// ChoiceKind says where a choice leads.
type ChoiceKind string

const (
	ChoiceEnd     ChoiceKind = "end"
	ChoiceJump    ChoiceKind = "jump"
	ChoiceAdvance ChoiceKind = "advance"
)

// Classify says what a choice targeting the 1-based ordinal target does in a
// novel of count scenes. Targets outside the novel fall back to advancing.
func Classify(target, count int) ChoiceKind {
	switch {
	case target == models.EndOfStory:
		return ChoiceEnd
	case target >= 1 && target <= count:
		return ChoiceJump
	default:
		return ChoiceAdvance
	}
}

func choiceLabel(choice models.Choice, k int) string {
	if choice.Text != "" {
		return choice.Text
	}
	return fmt.Sprintf("Option %d", k+1)
}
