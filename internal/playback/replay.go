package playback

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Corphon/NovelBuilder/internal/models"
)

// Op is a reader input.
type Op string

const (
	OpAdvance Op = "advance"
	OpChoose  Op = "choose"
	OpBack    Op = "back"
	OpRestart Op = "restart"
)

// Step is one reader input; Choice is used only by OpChoose.
type Step struct {
	Op     Op  `json:"op"`
	Choice int `json:"choice,omitempty"`
}

// Apply feeds one step to the engine.
func (e *Engine) Apply(step Step) State {
	switch step.Op {
	case OpAdvance:
		return e.Advance()
	case OpChoose:
		return e.Choose(step.Choice)
	case OpBack:
		return e.Back()
	case OpRestart:
		return e.Restart()
	default:
		return e.state
	}
}

// Replay runs steps against a fresh engine over scenes and returns the
// initial state followed by the state after every step. Identical input
// always yields the identical sequence.
func Replay(scenes []models.Scene, steps []Step) []State {
	e := New(scenes)
	states := make([]State, 0, len(steps)+1)
	states = append(states, e.State())
	for _, step := range steps {
		states = append(states, e.Apply(step))
	}
	return states
}

// ParseSteps reads a compact script such as "c0 a b r": a advances, cN
// chooses choice N, b goes back and r restarts.
func ParseSteps(script string) ([]Step, error) {
	fields := strings.Fields(script)
	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		step, err := ParseStep(f)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// ParseStep reads a single token of a step script.
func ParseStep(token string) (Step, error) {
	switch token = strings.ToLower(strings.TrimSpace(token)); {
	case token == "a" || token == "n" || token == "next":
		return Step{Op: OpAdvance}, nil
	case token == "b" || token == "p" || token == "back":
		return Step{Op: OpBack}, nil
	case token == "r" || token == "restart":
		return Step{Op: OpRestart}, nil
	case strings.HasPrefix(token, "c"):
		k, err := strconv.Atoi(token[1:])
		if err != nil {
			return Step{}, fmt.Errorf("invalid choice step %q: %w", token, err)
		}
		return Step{Op: OpChoose, Choice: k}, nil
	default:
		return Step{}, fmt.Errorf("unknown step %q", token)
	}
}
