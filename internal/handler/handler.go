// Package handler supplies the built-in action-handler implementations
// and the name->constructor table used to resolve one at startup.
// Handlers are selected by name from the table rather than loaded via
// dynamic linking.
package handler

import (
	"fmt"
	"log"

	"github.com/agalue/lurker/internal/dispatcher"
	"github.com/agalue/lurker/internal/registry"
)

// Constructor builds a handler from its opaque, handler-specific
// configuration blob (the handler_config option).
type Constructor func(config map[string]any) (dispatcher.Handler, error)

var builtins = map[string]Constructor{
	"noop": func(map[string]any) (dispatcher.Handler, error) { return NoOp{}, nil },
	"exec": NewExec,
	"ask":  NewAsk,
}

// Register adds or replaces a named constructor in the built-in
// table. Exposed so a deployment can extend the table with its own
// handler without forking this package.
func Register(name string, ctor Constructor) {
	builtins[name] = ctor
}

// Resolve instantiates the handler named by handlerModule with the
// given config. An unknown name is a configuration error, fatal at
// startup. A name that resolves but whose constructor fails is not:
// Resolve substitutes NoOp with a logged warning, since a broken
// optional handler (e.g. an unreachable Ollama server for "ask")
// shouldn't prevent the listener from running at all.
func Resolve(handlerModule string, config map[string]any) (dispatcher.Handler, error) {
	if handlerModule == "" {
		handlerModule = "noop"
	}
	ctor, ok := builtins[handlerModule]
	if !ok {
		return nil, fmt.Errorf("handler: unknown handler_module %q", handlerModule)
	}
	h, err := ctor(config)
	if err != nil {
		log.Printf("handler: %q failed to initialize (%v), falling back to noop", handlerModule, err)
		return NoOp{}, nil
	}
	return h, nil
}

// NoOp always succeeds without doing anything. It is the fallback for
// a failed constructor and the default when no handler_module is
// configured.
type NoOp struct{}

// Handle implements dispatcher.Handler.
func (NoOp) Handle(*registry.Action, *registry.Match) (int, error) { return 0, nil }
