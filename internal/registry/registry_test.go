package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeAction(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadOnceAndDispatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeAction(t, dir, "lights.json", `{"keys": ["turn off the lights"], "command": {"x": true}}`)

	r := New(dir)
	require.NoError(t, r.LoadOnce())

	action, _, ok := r.Find("please turn off the lights now")
	require.True(t, ok)
	require.NotNil(t, action)

	_, _, ok = r.Find("make coffee")
	require.False(t, ok)
}

func TestVerbatimRegexKey(t *testing.T) {
	dir := t.TempDir()
	writeAction(t, dir, "a.json", `{"keys": ["/^turn (on|off) the lights$/"], "command": null}`)

	r := New(dir)
	require.NoError(t, r.LoadOnce())

	_, _, ok := r.Find("turn on the lights")
	require.True(t, ok)

	_, _, ok = r.Find("please turn on the lights now")
	require.False(t, ok, "verbatim regex must not be loosely wrapped")
}

func TestMalformedFileIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeAction(t, dir, "good.json", `{"keys": ["hello"], "command": null}`)
	writeAction(t, dir, "bad.json", `not json`)

	r := New(dir)
	require.NoError(t, r.LoadOnce())

	_, _, ok := r.Find("hello there")
	require.True(t, ok)
}

func TestLoadOnceIsIdempotentOnUnchangedDirectory(t *testing.T) {
	dir := t.TempDir()
	writeAction(t, dir, "a.json", `{"keys": ["hi"], "command": null}`)

	r := New(dir)
	require.NoError(t, r.LoadOnce())
	first := r.snap.Load()

	require.NoError(t, r.LoadOnce())
	second := r.snap.Load()

	require.Equal(t, len(first.actions), len(second.actions))
	require.Equal(t, first.actions["a.json"].Keys, second.actions["a.json"].Keys)
}

func TestPeriodicReloadPicksUpUpdatedFile(t *testing.T) {
	dir := t.TempDir()
	writeAction(t, dir, "a.json", `{"keys": ["hello"], "command": null}`)

	r := New(dir)
	require.NoError(t, r.LoadOnce())

	time.Sleep(10 * time.Millisecond)
	writeAction(t, dir, "a.json", `{"keys": ["goodbye"], "command": null}`)

	r.StartPeriodicReload(20 * time.Millisecond)
	defer r.Stop()

	require.Eventually(t, func() bool {
		_, _, ok := r.Find("goodbye now")
		return ok
	}, time.Second, 10*time.Millisecond)
}
