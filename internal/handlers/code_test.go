package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeIgnoresOtherCommands(t *testing.T) {
	h := &Code{}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/session list")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Empty(t, reply)
}

func TestCodeFullTogglesPerThread(t *testing.T) {
	h := &Code{}
	require.False(t, h.WantsFullCode("thread-1"))

	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/code full")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, "enabled")
	require.True(t, h.WantsFullCode("thread-1"))

	reply, claimed, err = h.Handle(context.Background(), "thread-1", "/code full")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Contains(t, reply, "disabled")
	require.False(t, h.WantsFullCode("thread-1"))
}

func TestCodeFullIsPerThreadIsolated(t *testing.T) {
	h := &Code{}
	_, _, err := h.Handle(context.Background(), "thread-1", "/code full")
	require.NoError(t, err)

	require.True(t, h.WantsFullCode("thread-1"))
	require.False(t, h.WantsFullCode("thread-2"))
}

func TestCodeHelp(t *testing.T) {
	h := &Code{}
	reply, claimed, err := h.Handle(context.Background(), "thread-1", "/code help")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, codeHelp, reply)

	reply, claimed, err = h.Handle(context.Background(), "thread-1", "/code")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, codeHelp, reply)

	reply, claimed, err = h.Handle(context.Background(), "thread-1", "/code nonsense")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, codeHelp, reply)
}
