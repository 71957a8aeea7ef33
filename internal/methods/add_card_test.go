// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package methods

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/trello"
)

func validValues() Values {
	return Values{
		"idBoard": "b1",
		"idList":  "l1",
		"name":    "Buy milk",
	}
}

func TestAddCard_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Values)
		want   string
	}{
		{"missing board", func(v Values) { delete(v, "idBoard") }, fields.MsgBoardBlank},
		{"blank board", func(v Values) { v["idBoard"] = "   " }, fields.MsgBoardBlank},
		{"bad board", func(v Values) { v["idBoard"] = "b-1" }, fields.MsgBoardFormat},
		{"missing list", func(v Values) { delete(v, "idList") }, msgListBlank},
		{"bad list", func(v Values) { v["idList"] = "l 1" }, msgListFormat},
		{"bad member", func(v Values) { v["idMembers"] = "m1,m-2" }, msgMemberFormat},
		{"empty member entry", func(v Values) { v["idMembers"] = "m1,,m2" }, msgMemberFormat},
		{"missing name", func(v Values) { delete(v, "name") }, msgNameBlank},
		{"blank name", func(v Values) { v["name"] = "  \t" }, msgNameBlank},
		{"bad due", func(v Values) { v["due"] = "next tuesday" }, msgDueInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newRouteExecutor()
			env := newTestEnv(t, exec)
			v := validValues()
			tt.mutate(v)

			_, err := AddCard{}.Run(context.Background(), env, v)
			require.Error(t, err)
			te, ok := trello.AsError(err)
			require.True(t, ok)
			assert.Equal(t, trello.KindRejected, te.Kind)
			assert.Equal(t, tt.want, te.UserMessage())
			assert.Empty(t, exec.callsWithPrefix(""), "validation failures must not reach Trello")
		})
	}
}

func TestAddCard_CreatesCard(t *testing.T) {
	exec := newRouteExecutor()
	exec.set("cards", `{"id":"c9","name":"Buy milk"}`)
	env := newTestEnv(t, exec)

	v := validValues()
	v["idMembers"] = "m1, m2"
	v["labels"] = "red, blue ,green"
	v["due"] = "2024-03-05T10:30:00+01:00"
	v["pos"] = "top"
	v["desc"] = "  two litres  "

	out, err := AddCard{}.Run(context.Background(), env, v)
	require.NoError(t, err)
	assert.Equal(t, trello.CreatedCard{ID: "c9"}, out)

	require.Len(t, exec.seen, 1)
	spec := exec.seen[0]
	assert.Equal(t, "POST", spec.Method)
	body, err := json.Marshal(spec.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Buy milk",
		"desc": "  two litres  ",
		"pos": "top",
		"due": "2024-03-05T09:30:00.000Z",
		"labels": "red,blue,green",
		"idBoard": "b1",
		"idList": "l1",
		"idMembers": "m1,m2"
	}`, string(body))
}

func TestAddCard_DueFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-05T10:30:00Z", "2024-03-05T10:30:00.000Z"},
		{"2024-03-05T10:30:00.123456Z", "2024-03-05T10:30:00.123Z"},
		{"2024-03-05T10:30", "2024-03-05T10:30:00.000Z"},
		{"2024-03-05", "2024-03-05T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := validValues()
			v["due"] = tt.in
			card, err := newCardFromValues(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, card.Due)
		})
	}
}

func TestAddCard_NumericIDs(t *testing.T) {
	v := Values{"idBoard": float64(12345), "idList": json.Number("678"), "name": "n"}
	card, err := newCardFromValues(v)
	require.NoError(t, err)
	assert.Equal(t, "12345", card.IDBoard)
	assert.Equal(t, "678", card.IDList)
}

func TestAddCard_UpstreamRejectionPropagates(t *testing.T) {
	exec := newRouteExecutor()
	rejected := &trello.Error{Kind: trello.KindRejected, Message: "invalid value for idList", Status: 400}
	exec.errs["cards"] = rejected
	env := newTestEnv(t, exec)

	_, err := AddCard{}.Run(context.Background(), env, validValues())
	assert.Same(t, rejected, err)
}

func TestAddCard_InputFlat(t *testing.T) {
	exec := newRouteExecutor()
	exec.set("members/me/boards", `[{"id":"b1","name":"Holiday"}]`)
	exec.set("boards/b1/lists", `[{"id":"l1","name":"To Do"}]`)
	exec.set("boards/b1/members", `[{"id":"m1","fullName":"Ada"}]`)
	env := newTestEnv(t, exec)

	got, err := AddCard{}.Input(context.Background(), env, InputRequest{Flat: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fields.KeyIDMembers, got[0].Key)
	assert.Equal(t, fields.KeyIDList, got[1].Key)
	assert.Equal(t, []fields.Option{{Value: "l1", Label: "Holiday - To Do"}}, got[1].Options)
}

func TestAddCard_InputBoardTarget(t *testing.T) {
	exec := newRouteExecutor()
	exec.set("boards/b1/lists", `[{"id":"l1","name":"To Do"}]`)
	exec.set("boards/b1/members", `[{"id":"m1","fullName":"Ada"}]`)
	env := newTestEnv(t, exec)

	got, err := AddCard{}.Input(context.Background(), env, InputRequest{Target: fields.NewTarget("idBoard", "b1")})
	require.NoError(t, err)
	keys := make([]string, 0, len(got))
	for _, f := range got {
		keys = append(keys, f.Key)
	}
	assert.ElementsMatch(t, []string{fields.KeyIDList, fields.KeyIDMembers}, keys)
}

func TestValues_String(t *testing.T) {
	v := Values{
		"s":   "x",
		"f":   float64(1.5),
		"big": float64(1e21),
		"i":   7,
		"b":   true,
		"arr": []any{"a", float64(2)},
		"nil": nil,
	}
	assert.Equal(t, "x", v.String("s"))
	assert.Equal(t, "1.5", v.String("f"))
	assert.Equal(t, "1000000000000000000000", v.String("big"))
	assert.Equal(t, "7", v.String("i"))
	assert.Equal(t, "true", v.String("b"))
	assert.Equal(t, "a,2", v.String("arr"))
	assert.Equal(t, "", v.String("nil"))
	assert.Equal(t, "", v.String("missing"))
}
