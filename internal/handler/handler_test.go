package handler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agalue/lurker/internal/dispatcher"
	"github.com/agalue/lurker/internal/registry"
)

func TestResolveNoopOnEmptyModule(t *testing.T) {
	h, err := Resolve("", nil)
	require.NoError(t, err)
	require.IsType(t, NoOp{}, h)
}

func TestResolveUnknownModuleIsError(t *testing.T) {
	_, err := Resolve("does-not-exist", nil)
	require.Error(t, err)
}

func TestResolveFailingConstructorFallsBackToNoop(t *testing.T) {
	Register("broken", func(map[string]any) (dispatcher.Handler, error) {
		return nil, errors.New("broken handler")
	})
	h, err := Resolve("broken", nil)
	require.NoError(t, err)
	require.IsType(t, NoOp{}, h)
}

func TestNoOpAlwaysSucceeds(t *testing.T) {
	status, err := NoOp{}.Handle(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, status)
}

func TestExecRunsArgvAndReportsExitCode(t *testing.T) {
	h, err := NewExec(nil)
	require.NoError(t, err)

	action := &registry.Action{Command: json.RawMessage(`{"argv": ["true"]}`)}
	status, err := h.Handle(action, &registry.Match{})
	require.NoError(t, err)
	require.Equal(t, 0, status)
}

func TestExecMissingArgvIsError(t *testing.T) {
	h, err := NewExec(nil)
	require.NoError(t, err)

	action := &registry.Action{Command: json.RawMessage(`{}`)}
	_, err = h.Handle(action, &registry.Match{})
	require.Error(t, err)
}
