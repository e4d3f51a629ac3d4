package model_test

import (
	"testing"
	"warden/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryArgsRoundTrip(t *testing.T) {
	t.Parallel()

	entry := model.ScheduledEntry{Args: model.EncodeArgs([]string{"role-99", "extra"})}
	args, err := entry.ArgList()
	require.NoError(t, err)
	assert.Equal(t, []string{"role-99", "extra"}, args)

	empty := model.ScheduledEntry{Args: model.EncodeArgs(nil)}
	args, err = empty.ArgList()
	require.NoError(t, err)
	assert.Empty(t, args)

	corrupted := model.ScheduledEntry{Args: "{not json"}
	_, err = corrupted.ArgList()
	assert.Error(t, err)
}

func TestReversalTask(t *testing.T) {
	t.Parallel()

	task, ok := model.InfractionBan.ReversalTask()
	require.True(t, ok)
	assert.Equal(t, model.TaskUnban, task)

	task, ok = model.InfractionMassBan.ReversalTask()
	require.True(t, ok)
	assert.Equal(t, model.TaskUnban, task)

	task, ok = model.InfractionMute.ReversalTask()
	require.True(t, ok)
	assert.Equal(t, model.TaskUnmute, task)

	task, ok = model.InfractionRoleAdd.ReversalTask()
	require.True(t, ok)
	assert.Equal(t, model.TaskRemoveRole, task)

	task, ok = model.InfractionRoleRemove.ReversalTask()
	require.True(t, ok)
	assert.Equal(t, model.TaskRestoreRole, task)

	for _, oneShot := range []model.InfractionType{
		model.InfractionWarn, model.InfractionKick, model.InfractionUnban,
	} {
		_, ok := oneShot.ReversalTask()
		assert.False(t, ok, string(oneShot))
	}
}
