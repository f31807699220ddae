package services

import (
	"fmt"
	"sync"
)

// PermissionError is a store permission-denied failure enriched with the
// attempted path, operation and payload. It is returned to the caller and
// published on the process-wide emitter for observability.
type PermissionError struct {
	Path      string      `json:"path"`
	Operation string      `json:"operation"`
	Payload   interface{} `json:"payload,omitempty"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s %s", e.Operation, e.Path)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// Emitter fans permission errors out to subscribers. Publishing never blocks:
// slow subscribers drop events rather than stalling store operations.
type Emitter struct {
	mu   sync.RWMutex
	subs []chan *PermissionError
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Subscribe() <-chan *PermissionError {
	ch := make(chan *PermissionError, 16)

	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()

	return ch
}

func (e *Emitter) Publish(pe *PermissionError) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subs {
		select {
		case ch <- pe:
		default:
		}
	}
}
