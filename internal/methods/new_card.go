// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package methods

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/trello"
)

const msgNoBoard = "Cannot run: no boardId specified. Are you sure you selected a valid board from the dropdown menu?"

var nonWord = regexp.MustCompile(`\W+`)

// NewCard is the "New Card" poller trigger.
type NewCard struct{}

func (NewCard) Meta() Meta {
	return Meta{
		Name:   "New Card",
		Slug:   "new_card",
		Type:   TypePoller,
		Kind:   KindTrigger,
		Fields: []fields.InputField{},
	}
}

// Input offers the board selector only.
func (NewCard) Input(ctx context.Context, env Env, req InputRequest) ([]fields.InputField, error) {
	if req.Target != nil {
		return []fields.InputField{}, nil
	}
	return env.Resolver.BoardsOnly(ctx, env.Client)
}

// Run returns the full records of cards created since the last poll of the
// same connection and board, newest first.
func (NewCard) Run(ctx context.Context, env Env, values Values) (any, error) {
	boardID := nonWord.ReplaceAllString(values.Trimmed(fields.KeyIDBoard), "")
	if boardID == "" {
		return nil, trello.Rejected(msgNoBoard)
	}

	ids, err := env.Client.LatestCardIDs(ctx, boardID)
	if err != nil {
		return nil, err
	}

	fresh, err := env.Poll.DiffAndCommit(ctx, PollerKey("new_card", env.ConnectionID, boardID), ids)
	if err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return []json.RawMessage{}, nil
	}
	cards, err := env.Client.Cards(ctx, fresh)
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// PollerKey namespaces the seen set per method, connection and board.
func PollerKey(slug, connectionID, boardID string) string {
	if connectionID == "" {
		connectionID = "default"
	}
	return slug + ":" + connectionID + ":" + boardID
}
