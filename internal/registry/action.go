// Package registry implements the action registry: a directory-backed,
// periodically-reloaded pattern-matcher over user-supplied
// key->command records.
package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Action is a loaded key-list plus opaque command payload. Command is
// kept as json.RawMessage: the registry never interprets it, only the
// handler that claims a match does.
type Action struct {
	Keys     []string        `json:"keys"`
	Command  json.RawMessage `json:"command"`
	patterns []*regexp.Regexp
}

// file is the on-disk shape of one action record.
type file struct {
	Keys    []string        `json:"keys"`
	Command json.RawMessage `json:"command"`
}

// compileKey compiles a single key: a key enclosed in forward slashes
// is used verbatim as a regex; any other key is wrapped as
// ".*<key>.*".
func compileKey(key string) (*regexp.Regexp, error) {
	if len(key) >= 2 && strings.HasPrefix(key, "/") && strings.HasSuffix(key, "/") {
		return regexp.Compile(key[1 : len(key)-1])
	}
	return regexp.Compile(".*" + key + ".*")
}

// newAction parses one file's contents into an Action, compiling every
// key to a pattern. Compilation is idempotent: compiling the same key
// list again yields patterns that accept the same strings.
func newAction(data []byte) (*Action, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: decode action: %w", err)
	}
	if len(f.Keys) == 0 {
		return nil, fmt.Errorf("registry: action has no keys")
	}
	patterns := make([]*regexp.Regexp, 0, len(f.Keys))
	for _, k := range f.Keys {
		p, err := compileKey(k)
		if err != nil {
			return nil, fmt.Errorf("registry: compile key %q: %w", k, err)
		}
		patterns = append(patterns, p)
	}
	return &Action{Keys: f.Keys, Command: f.Command, patterns: patterns}, nil
}

// Match is the opaque match object returned to the caller on a hit: it
// carries the regexp submatch slices so a handler can inspect capture
// groups if its key used any.
type Match struct {
	Pattern  *regexp.Regexp
	Submatch []string
}

// matches reports whether any of the action's compiled patterns
// matches the lowercased instruction, returning the first hit.
func (a *Action) matches(instruction string) (*Match, bool) {
	lower := strings.ToLower(instruction)
	for _, p := range a.patterns {
		if sub := p.FindStringSubmatch(lower); sub != nil {
			return &Match{Pattern: p, Submatch: sub}, true
		}
	}
	return nil, false
}
