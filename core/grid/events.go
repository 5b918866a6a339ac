package grid

import (
	"time"

	"github.com/kilianp07/npiscenarios/core/model"
)

// RunEvent is published after each combination finishes.
type RunEvent struct {
	Mode     string
	Index    int
	Total    int
	Label    model.Label
	Duration time.Duration
	Err      error
}

// Publisher receives run events. internal/eventbus.Bus satisfies it.
type Publisher interface {
	Publish(RunEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(RunEvent) {}
