// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package methods

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/boardlink/internal/fields"
)

func TestDefaultRegistry_List(t *testing.T) {
	metas := Default().List()
	require.Len(t, metas, 2)

	assert.Equal(t, "new_card", metas[0].Slug)
	assert.Equal(t, TypePoller, metas[0].Type)
	assert.Equal(t, KindTrigger, metas[0].Kind)

	assert.Equal(t, "add_a_card", metas[1].Slug)
	assert.Equal(t, TypeAction, metas[1].Type)
	assert.Equal(t, KindTask, metas[1].Kind)

	raw, err := json.Marshal(metas[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"input_fields":[`)
	assert.Contains(t, string(raw), `"input_options":[{"value":"top","label":"Top"}`)
}

func TestRegistry_UnknownMethod(t *testing.T) {
	r := Default()
	env := newTestEnv(t, newRouteExecutor())

	_, err := r.Run(context.Background(), "delete_everything", env, Values{})
	assert.True(t, errors.Is(err, ErrUnknownMethod))

	_, err = r.Input(context.Background(), "delete_everything", env, InputRequest{})
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestRegistry_RunDispatches(t *testing.T) {
	exec := newRouteExecutor()
	exec.set("boards/b1/actions", actionsFeed("1"))
	exec.set("cards/1", `{"id":"1"}`)
	env := newTestEnv(t, exec)

	out, err := Default().Run(context.Background(), "new_card", env, Values{"idBoard": "b1"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRegistry_InputDispatches(t *testing.T) {
	exec := newRouteExecutor()
	exec.set("members/me/boards", `[{"id":"b1","name":"Holiday"}]`)
	env := newTestEnv(t, exec)

	got, err := Default().Input(context.Background(), "add_a_card", env, InputRequest{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fields.KeyIDBoard, got[0].Key)
	require.NotNil(t, got[0].Dependants)
	assert.Equal(t, []string{fields.KeyIDList, fields.KeyIDMembers}, got[0].Dependants.Keys())
}

func TestNewRegistry_DuplicateSlugPanics(t *testing.T) {
	assert.Panics(t, func() { NewRegistry(NewCard{}, NewCard{}) })
}
