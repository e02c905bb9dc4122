// Package dispatcher resolves a transcribed instruction against the
// action registry and invokes the matched handler, emitting
// feedback-sound events along the way.
package dispatcher

import (
	"log"

	"github.com/agalue/lurker/internal/registry"
)

// Registry is the subset of the action registry the dispatcher
// consumes.
type Registry interface {
	Find(instruction string) (*registry.Action, *registry.Match, bool)
}

// Handler is the pluggable action executor. It returns a status code;
// by convention 0 means success, any other value (or an error) means
// failure.
type Handler interface {
	Handle(action *registry.Action, match *registry.Match) (status int, err error)
}

// Sounds is the feedback-sound sink, keyed by the closed set of
// semantic event names. Playback is fire-and-forget: Play must not
// block the caller for long and must never return an error the
// dispatcher needs to handle.
type Sounds interface {
	Play(event string)
}

// Feedback event names. The set is closed; the sink preloads one clip
// per name.
const (
	EventStartup    = "startup"
	EventReady      = "ready"
	EventUnderstood = "understood"
	EventOK         = "ok"
	EventNo         = "no"
)

// Dispatcher implements Act: query the registry, emit feedback, invoke
// the handler. No failure propagates out of Act; every path emits
// exactly one terminal sound.
type Dispatcher struct {
	registry Registry
	handler  Handler
	sounds   Sounds
}

// New creates a Dispatcher wired to the given registry, handler and
// feedback sink.
func New(registry Registry, handler Handler, sounds Sounds) *Dispatcher {
	return &Dispatcher{registry: registry, handler: handler, sounds: sounds}
}

// Act resolves instructionText against the registry and dispatches to
// the handler:
//  1. No match -> emit `no`, return.
//  2. Match -> emit `understood`.
//  3. Invoke the handler; a panic or error is caught and coerced to a
//     non-zero status.
//  4. status == 0 -> emit `ok`; otherwise emit `no`.
func (d *Dispatcher) Act(instructionText string) {
	action, match, ok := d.registry.Find(instructionText)
	if !ok {
		log.Printf("dispatcher: no action matched %q", instructionText)
		d.sounds.Play(EventNo)
		return
	}

	d.sounds.Play(EventUnderstood)

	status := d.invoke(action, match)
	if status == 0 {
		d.sounds.Play(EventOK)
		return
	}
	log.Printf("dispatcher: handler returned non-zero status %d for %q", status, instructionText)
	d.sounds.Play(EventNo)
}

// invoke calls the handler, converting any error (including a
// recovered panic, which a third-party handler implementation might
// raise) into a non-zero status so it never escapes Act.
func (d *Dispatcher) invoke(action *registry.Action, match *registry.Match) (status int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: handler panicked: %v", r)
			status = 1
		}
	}()

	s, err := d.handler.Handle(action, match)
	if err != nil {
		log.Printf("dispatcher: handler error: %v", err)
		return 1
	}
	return s
}
