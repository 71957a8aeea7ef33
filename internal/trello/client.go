// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/ManuGH/boardlink/internal/fanout"
	adlio "github.com/adlio/trello"
)

// CardFields is the field selection used for card detail fetches.
const CardFields = "badges,closed,dateLastActivity,desc,due,email,idBoard,idChecklists,idList,idShort,idAttachmentCover,manualCoverAttachment,labels,name,pos,shortLink,shortUrl,url"

// Board is an open board visible to the connected member.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is a board column. BoardName is filled in by ListsForBoards.
type List struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoardName string `json:"board,omitempty"`
}

// Member is a board member.
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// NewCard is the body of a card creation call.
type NewCard struct {
	Name         string `json:"name"`
	Desc         string `json:"desc,omitempty"`
	Pos          string `json:"pos,omitempty"`
	Due          string `json:"due,omitempty"`
	Labels       string `json:"labels,omitempty"`
	IDBoard      string `json:"idBoard,omitempty"`
	IDList       string `json:"idList"`
	IDMembers    string `json:"idMembers,omitempty"`
	URLSource    string `json:"urlSource,omitempty"`
	IDCardSource string `json:"idCardSource,omitempty"`
}

// CreatedCard is what the host receives after a card was created.
type CreatedCard struct {
	ID string `json:"id"`
}

// Client exposes the Trello operations the connector needs, bound to one
// set of credentials.
type Client struct {
	exec  Executor
	creds Credentials
}

// NewClient binds exec to creds.
func NewClient(exec Executor, creds Credentials) *Client {
	return &Client{exec: exec, creds: creds}
}

func (c *Client) execute(ctx context.Context, spec RequestSpec) (json.RawMessage, error) {
	return c.exec.Execute(ctx, spec, c.creds)
}

// Boards returns the open boards of the connected member.
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	spec := Get("members/me/boards", adlio.Arguments{"filter": "open", "fields": "name"}).
		WithRoute("members/me/boards")
	payload, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	var raw []adlio.Board
	if err := decode(payload, &raw, spec.Route); err != nil {
		return nil, err
	}
	out := make([]Board, 0, len(raw))
	for _, b := range raw {
		out = append(out, Board{ID: b.ID, Name: b.Name})
	}
	return out, nil
}

// BoardLists returns the lists of one board.
func (c *Client) BoardLists(ctx context.Context, boardID string) ([]List, error) {
	spec := Get("boards/"+url.PathEscape(boardID)+"/lists", adlio.Arguments{"fields": "name"}).
		WithRoute("boards/{id}/lists")
	payload, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	var raw []adlio.List
	if err := decode(payload, &raw, spec.Route); err != nil {
		return nil, err
	}
	out := make([]List, 0, len(raw))
	for _, l := range raw {
		out = append(out, List{ID: l.ID, Name: l.Name})
	}
	return out, nil
}

// BoardMembers returns the members of one board.
func (c *Client) BoardMembers(ctx context.Context, boardID string) ([]Member, error) {
	spec := Get("boards/"+url.PathEscape(boardID)+"/members", adlio.Arguments{"fields": "fullName"}).
		WithRoute("boards/{id}/members")
	payload, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	var raw []adlio.Member
	if err := decode(payload, &raw, spec.Route); err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(raw))
	for _, m := range raw {
		out = append(out, Member{ID: m.ID, FullName: m.FullName})
	}
	return out, nil
}

type cardAction struct {
	Data *struct {
		Card *struct {
			ID string `json:"id"`
		} `json:"card"`
	} `json:"data"`
}

// LatestCardIDs returns the IDs of recently created cards on a board, newest
// first, as reported by the createCard action feed.
func (c *Client) LatestCardIDs(ctx context.Context, boardID string) ([]string, error) {
	spec := Get("boards/"+url.PathEscape(boardID)+"/actions", adlio.Arguments{"filter": "createCard"}).
		WithRoute("boards/{id}/actions")
	payload, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	var actions []*cardAction
	if err := decode(payload, &actions, spec.Route); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		if a == nil || a.Data == nil || a.Data.Card == nil || a.Data.Card.ID == "" {
			continue
		}
		ids = append(ids, a.Data.Card.ID)
	}
	return ids, nil
}

// Card returns the full card record including members.
func (c *Client) Card(ctx context.Context, cardID string) (json.RawMessage, error) {
	spec := Get("cards/"+url.PathEscape(cardID), adlio.Arguments{"members": "true", "fields": CardFields}).
		WithRoute("cards/{id}")
	return c.execute(ctx, spec)
}

// Cards fetches card details with at most fanout.DetailLimit calls in
// flight. Output order follows ids.
func (c *Client) Cards(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	return fanout.Map(ctx, ids, fanout.DetailLimit, c.Card)
}

// MembersForBoards fetches the members of every board concurrently and
// returns them deduplicated by member ID, first occurrence wins.
func (c *Client) MembersForBoards(ctx context.Context, boards []Board) ([]Member, error) {
	perBoard, err := fanout.Map(ctx, boards, fanout.Unbounded, func(ctx context.Context, b Board) ([]Member, error) {
		return c.BoardMembers(ctx, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return fanout.UniqueBy(fanout.Concat(perBoard), func(m Member) string { return m.ID }), nil
}

// ListsForBoards fetches the lists of every board concurrently and returns
// them in board order, each annotated with its board name.
func (c *Client) ListsForBoards(ctx context.Context, boards []Board) ([]List, error) {
	perBoard, err := fanout.Map(ctx, boards, fanout.Unbounded, func(ctx context.Context, b Board) ([]List, error) {
		lists, err := c.BoardLists(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		for i := range lists {
			lists[i].BoardName = b.Name
		}
		return lists, nil
	})
	if err != nil {
		return nil, err
	}
	return fanout.Concat(perBoard), nil
}

// CreateCard creates a card. POST calls are never retried by the gateway.
func (c *Client) CreateCard(ctx context.Context, card NewCard) (CreatedCard, error) {
	spec := Post("cards", card).WithRoute("cards")
	payload, err := c.execute(ctx, spec)
	if err != nil {
		return CreatedCard{}, err
	}
	var out CreatedCard
	if err := decode(payload, &out, spec.Route); err != nil {
		return CreatedCard{}, err
	}
	return out, nil
}

// decode maps a syntactically valid payload onto v. A shape mismatch is a
// transport anomaly, not a policy rejection.
func decode(payload json.RawMessage, v any, route string) error {
	if err := json.Unmarshal(payload, v); err != nil {
		e := Retryable(msgRetryablePrefix+"unexpected response shape", err)
		e.Operation = route
		return e
	}
	return nil
}
