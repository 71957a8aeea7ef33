// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fields

import (
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/boardlink/internal/trello"
)

// optionLabel puts display names into NFC so hosts compare and sort them
// consistently.
func optionLabel(s string) string {
	return norm.NFC.String(s)
}

// BoardsField builds the required board selector.
func BoardsField(boards []trello.Board, dependants *Dependants) InputField {
	opts := make([]Option, 0, len(boards))
	for _, b := range boards {
		opts = append(opts, Option{Value: b.ID, Label: optionLabel(b.Name)})
	}
	return InputField{
		Key:        KeyIDBoard,
		Label:      "Board",
		Type:       TypeSelect,
		Required:   true,
		Options:    opts,
		Dependants: dependants,
	}
}

// ListsField builds the required list selector. Lists that carry a board
// name are labelled "<board> - <list>".
func ListsField(lists []trello.List) InputField {
	opts := make([]Option, 0, len(lists))
	for _, l := range lists {
		label := l.Name
		if l.BoardName != "" {
			label = l.BoardName + " - " + l.Name
		}
		opts = append(opts, Option{Value: l.ID, Label: optionLabel(label)})
	}
	return InputField{
		Key:      KeyIDList,
		Label:    "List",
		Type:     TypeSelect,
		Required: true,
		Options:  opts,
	}
}

// MembersField builds the optional member selector.
func MembersField(members []trello.Member) InputField {
	opts := make([]Option, 0, len(members))
	for _, m := range members {
		opts = append(opts, Option{Value: m.ID, Label: optionLabel(m.FullName)})
	}
	return InputField{
		Key:         KeyIDMembers,
		Label:       "Member",
		Type:        TypeSelect,
		Description: "Choosing a member here will add them to the card.",
		Options:     opts,
	}
}
