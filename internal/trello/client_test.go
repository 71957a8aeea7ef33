// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers by request path and records every spec it saw.
type fakeExecutor struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	delays    map[string]time.Duration
	seen      []RequestSpec
	creds     []Credentials
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		responses: map[string]string{},
		errs:      map[string]error{},
		delays:    map[string]time.Duration{},
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, spec RequestSpec, creds Credentials) (json.RawMessage, error) {
	f.mu.Lock()
	f.seen = append(f.seen, spec)
	f.creds = append(f.creds, creds)
	delay := f.delays[spec.Path]
	err := f.errs[spec.Path]
	body, ok := f.responses[spec.Path]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ClassifyTransport(ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Kind: KindRejected, Message: "The requested resource was not found.", Status: 404}
	}
	return json.RawMessage(body), nil
}

func (f *fakeExecutor) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.seen))
	for _, s := range f.seen {
		out = append(out, s.Path)
	}
	return out
}

func TestClient_Boards(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["members/me/boards"] = `[{"id":"b1","name":"Holiday","closed":false},{"id":"b2","name":"Work"}]`
	c := NewClient(exec, testCreds)

	boards, err := c.Boards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Board{{ID: "b1", Name: "Holiday"}, {ID: "b2", Name: "Work"}}, boards)

	require.Len(t, exec.seen, 1)
	assert.Equal(t, "open", exec.seen[0].Query["filter"])
	assert.Equal(t, "name", exec.seen[0].Query["fields"])
	assert.Equal(t, testCreds, exec.creds[0])
}

func TestClient_UnexpectedShapeIsRetryable(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["members/me/boards"] = `{"not":"a list"}`
	c := NewClient(exec, testCreds)

	_, err := c.Boards(context.Background())
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRetryable, e.Kind)
	assert.Equal(t, "members/me/boards", e.Operation)
}

func TestClient_LatestCardIDsSkipsMalformedActions(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["boards/b1/actions"] = `[
		{"data":{"card":{"id":"c3"}}},
		{"data":{}},
		null,
		{"data":{"card":{"id":""}}},
		{"data":{"card":{"id":"c1"}}}
	]`
	c := NewClient(exec, testCreds)

	ids, err := c.LatestCardIDs(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1"}, ids)
	assert.Equal(t, "createCard", exec.seen[0].Query["filter"])
}

func TestClient_CardsPreserveOrder(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["cards/c1"] = `{"id":"c1"}`
	exec.responses["cards/c2"] = `{"id":"c2"}`
	exec.responses["cards/c3"] = `{"id":"c3"}`
	exec.delays["cards/c1"] = 30 * time.Millisecond
	c := NewClient(exec, testCreds)

	cards, err := c.Cards(context.Background(), []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.JSONEq(t, `{"id":"c1"}`, string(cards[0]))
	assert.JSONEq(t, `{"id":"c2"}`, string(cards[1]))
	assert.JSONEq(t, `{"id":"c3"}`, string(cards[2]))

	exec.mu.Lock()
	defer exec.mu.Unlock()
	for _, s := range exec.seen {
		assert.Equal(t, "true", s.Query["members"])
		assert.Equal(t, CardFields, s.Query["fields"])
	}
}

func TestClient_CardsFailWhole(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["cards/c1"] = `{"id":"c1"}`
	exec.errs["cards/c2"] = &Error{Kind: KindAuthExpired, Message: MsgAuthExpired, Status: 401}
	c := NewClient(exec, testCreds)

	cards, err := c.Cards(context.Background(), []string{"c1", "c2"})
	assert.Nil(t, cards)
	assert.Equal(t, KindAuthExpired, KindOf(err))
}

func TestClient_MembersForBoardsDedupFirstWins(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["boards/b1/members"] = `[{"id":"m1","fullName":"Bob Holness"},{"id":"m2","fullName":"Anneka Rice"}]`
	exec.responses["boards/b2/members"] = `[{"id":"m2","fullName":"Anneka R."},{"id":"m3","fullName":"Henry Kelly"}]`
	// Board order wins even when the first board answers last.
	exec.delays["boards/b1/members"] = 30 * time.Millisecond
	c := NewClient(exec, testCreds)

	members, err := c.MembersForBoards(context.Background(), []Board{{ID: "b1"}, {ID: "b2"}})
	require.NoError(t, err)
	assert.Equal(t, []Member{
		{ID: "m1", FullName: "Bob Holness"},
		{ID: "m2", FullName: "Anneka Rice"},
		{ID: "m3", FullName: "Henry Kelly"},
	}, members)
}

func TestClient_ListsForBoardsAnnotatesBoardName(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["boards/b1/lists"] = `[{"id":"l1","name":"Doing"}]`
	exec.responses["boards/b2/lists"] = `[{"id":"l2","name":"Done"},{"id":"l3","name":"Backlog"}]`
	c := NewClient(exec, testCreds)

	lists, err := c.ListsForBoards(context.Background(), []Board{{ID: "b1", Name: "Holiday"}, {ID: "b2", Name: "Work"}})
	require.NoError(t, err)
	assert.Equal(t, []List{
		{ID: "l1", Name: "Doing", BoardName: "Holiday"},
		{ID: "l2", Name: "Done", BoardName: "Work"},
		{ID: "l3", Name: "Backlog", BoardName: "Work"},
	}, lists)
	assert.ElementsMatch(t, []string{"boards/b1/lists", "boards/b2/lists"}, exec.paths())
}

func TestClient_ListsForBoardsFailsWhole(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["boards/b1/lists"] = `[{"id":"l1","name":"Doing"}]`
	c := NewClient(exec, testCreds)

	lists, err := c.ListsForBoards(context.Background(), []Board{{ID: "b1"}, {ID: "gone"}})
	assert.Nil(t, lists)
	assert.Equal(t, KindRejected, KindOf(err))
}

func TestClient_CreateCard(t *testing.T) {
	exec := newFakeExecutor()
	exec.responses["cards"] = `{"id":"new1","name":"Buy milk","idList":"l1"}`
	c := NewClient(exec, testCreds)

	created, err := c.CreateCard(context.Background(), NewCard{Name: "Buy milk", IDList: "l1"})
	require.NoError(t, err)
	assert.Equal(t, CreatedCard{ID: "new1"}, created)

	require.Len(t, exec.seen, 1)
	assert.Equal(t, "POST", exec.seen[0].Method)
	assert.Equal(t, NewCard{Name: "Buy milk", IDList: "l1"}, exec.seen[0].Body)
}
