// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package methods

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/trello"
)

// Validation messages shown to the end user.
const (
	msgListBlank    = "List ID can't be blank"
	msgListFormat   = "List ID is not in the correct format (letters or numbers only)"
	msgMemberFormat = "Member ID is not in the correct format (letters or numbers only)"
	msgNameBlank    = "Name can't be blank"
	msgDueInvalid   = "Due is not a valid date/time"
)

// isoMillis is the UTC ISO 8601 layout Trello stores dates in.
const isoMillis = "2006-01-02T15:04:05.000Z"

// AddCard is the "Add a Card" action.
type AddCard struct{}

func (AddCard) Meta() Meta {
	return Meta{
		Name: "Add a Card",
		Slug: "add_a_card",
		Type: TypeAction,
		Kind: KindTask,
		Fields: []fields.InputField{
			{Key: "name", Label: "Name", Type: fields.TypeText, Required: true},
			{Key: "desc", Label: "Description", Type: fields.TypeTextarea},
			{Key: "pos", Label: "Position", Type: fields.TypeSelect, Options: []fields.Option{
				{Value: "top", Label: "Top"},
				{Value: "bottom", Label: "Bottom"},
			}},
			{Key: "due", Label: "Due", Type: fields.TypeDatetime},
			{Key: "labels", Label: "Labels", Type: fields.TypeText,
				Description: "A comma-separated list of blue, green, orange, purple, red, yellow or all."},
			{Key: "urlSource", Label: "Copy Card URL", Type: fields.TypeText,
				Description: "The URL of a card that you want to copy (you must have access to it)."},
			{Key: "idCardSource", Label: "Copy Card ID", Type: fields.TypeText,
				Description: "The ID of a card that you want to copy (you must have access to it)."},
		},
	}
}

// Input resolves the board selector and its dependent list/member fields.
func (AddCard) Input(ctx context.Context, env Env, req InputRequest) ([]fields.InputField, error) {
	if req.Flat {
		return env.Resolver.ResolveAllBoards(ctx, env.Client)
	}
	return env.Resolver.Resolve(ctx, env.Client, req.Target)
}

// Run validates the input and creates the card.
func (AddCard) Run(ctx context.Context, env Env, values Values) (any, error) {
	card, err := newCardFromValues(values)
	if err != nil {
		return nil, err
	}
	created, err := env.Client.CreateCard(ctx, card)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func newCardFromValues(values Values) (trello.NewCard, error) {
	board := values.Trimmed(fields.KeyIDBoard)
	switch {
	case board == "":
		return trello.NewCard{}, trello.Rejected(fields.MsgBoardBlank)
	case !fields.ValidID(board):
		return trello.NewCard{}, trello.Rejected(fields.MsgBoardFormat)
	}

	list := values.Trimmed(fields.KeyIDList)
	switch {
	case list == "":
		return trello.NewCard{}, trello.Rejected(msgListBlank)
	case !fields.ValidID(list):
		return trello.NewCard{}, trello.Rejected(msgListFormat)
	}

	members := values.Trimmed(fields.KeyIDMembers)
	if members != "" {
		for _, id := range strings.Split(members, ",") {
			if !fields.ValidID(strings.TrimSpace(id)) {
				return trello.NewCard{}, trello.Rejected(msgMemberFormat)
			}
		}
		members = stripSpace(members)
	}

	name := values.String("name")
	if strings.TrimSpace(name) == "" {
		return trello.NewCard{}, trello.Rejected(msgNameBlank)
	}

	due := ""
	if raw := values.Trimmed("due"); raw != "" {
		t, err := parseDue(raw)
		if err != nil {
			return trello.NewCard{}, trello.Rejected(msgDueInvalid)
		}
		due = t.UTC().Format(isoMillis)
	}

	return trello.NewCard{
		Name:         name,
		Desc:         values.String("desc"),
		Pos:          values.Trimmed("pos"),
		Due:          due,
		Labels:       stripSpace(values.String("labels")),
		IDBoard:      board,
		IDList:       list,
		IDMembers:    members,
		URLSource:    values.Trimmed("urlSource"),
		IDCardSource: values.Trimmed("idCardSource"),
	}, nil
}

var dueLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func parseDue(s string) (time.Time, error) {
	var err error
	for _, layout := range dueLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
