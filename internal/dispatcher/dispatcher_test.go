package dispatcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agalue/lurker/internal/registry"
)

type fakeSounds struct {
	events []string
}

func (s *fakeSounds) Play(event string) { s.events = append(s.events, event) }

type fakeHandler struct {
	status int
	err    error
}

func (h *fakeHandler) Handle(action *registry.Action, match *registry.Match) (int, error) {
	return h.status, h.err
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lights.json"),
		[]byte(`{"keys": ["turn off the lights"], "command": "X"}`), 0o644))
	r := registry.New(dir)
	require.NoError(t, r.LoadOnce())
	return r
}

func TestActMatchAndHandlerSucceeds(t *testing.T) {
	r := newRegistry(t)
	sounds := &fakeSounds{}
	d := New(r, &fakeHandler{status: 0}, sounds)

	d.Act("please turn off the lights now")

	require.Equal(t, []string{EventUnderstood, EventOK}, sounds.events)
}

func TestActNoMatchEmitsOnlyNo(t *testing.T) {
	r := newRegistry(t)
	sounds := &fakeSounds{}
	d := New(r, &fakeHandler{status: 0}, sounds)

	d.Act("make coffee")

	require.Equal(t, []string{EventNo}, sounds.events)
}

func TestActHandlerErrorDowngradesToNo(t *testing.T) {
	r := newRegistry(t)
	sounds := &fakeSounds{}
	d := New(r, &fakeHandler{err: errors.New("boom")}, sounds)

	d.Act("please turn off the lights now")

	require.Equal(t, []string{EventUnderstood, EventNo}, sounds.events)
}

func TestActHandlerPanicDowngradesToNo(t *testing.T) {
	r := newRegistry(t)
	sounds := &fakeSounds{}
	d := New(r, panicHandler{}, sounds)

	require.NotPanics(t, func() { d.Act("please turn off the lights now") })
	require.Equal(t, []string{EventUnderstood, EventNo}, sounds.events)
}

type panicHandler struct{}

func (panicHandler) Handle(action *registry.Action, match *registry.Match) (int, error) {
	panic("handler exploded")
}
