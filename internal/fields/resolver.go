// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fields

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/metrics"
	"github.com/ManuGH/boardlink/internal/telemetry"
	"github.com/ManuGH/boardlink/internal/trello"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Validation messages shown to the end user.
const (
	MsgBoardBlank  = "Board ID can't be blank"
	MsgBoardFormat = "Board ID is not in the correct format (letters or numbers only)"
)

var idPattern = regexp.MustCompile(`(?i)^[a-z0-9]+$`)

// ValidID reports whether s looks like a Trello object ID.
func ValidID(s string) bool { return idPattern.MatchString(s) }

// Source is the slice of the Trello client the resolver reads from.
type Source interface {
	Boards(ctx context.Context) ([]trello.Board, error)
	BoardLists(ctx context.Context, boardID string) ([]trello.List, error)
	BoardMembers(ctx context.Context, boardID string) ([]trello.Member, error)
	MembersForBoards(ctx context.Context, boards []trello.Board) ([]trello.Member, error)
	ListsForBoards(ctx context.Context, boards []trello.Board) ([]trello.List, error)
}

// Mode selects how InitialLoad announces dependent fields.
type Mode int

const (
	// ModeAdvertise lists the dependent keys and returns them as empty
	// placeholders.
	ModeAdvertise Mode = iota
	// ModeLegacy marks the board field with dependants=true and returns it
	// alone.
	ModeLegacy
)

// ParseMode accepts "advertise" (default when empty) and "legacy".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "advertise":
		return ModeAdvertise, nil
	case "legacy":
		return ModeLegacy, nil
	default:
		return 0, fmt.Errorf("unknown field mode %q (supported: advertise, legacy)", s)
	}
}

func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "advertise"
}

// Resolver computes input schemas. It holds no per-call state.
type Resolver struct {
	mode Mode
}

// NewResolver returns a resolver in the given mode.
func NewResolver(mode Mode) *Resolver {
	return &Resolver{mode: mode}
}

// Mode returns the configured mode.
func (r *Resolver) Mode() Mode { return r.mode }

// Resolve runs InitialLoad when target is nil and DependentResolution
// otherwise. A follow-up returns only the dependants of the target.
func (r *Resolver) Resolve(ctx context.Context, src Source, target *FieldTarget) ([]InputField, error) {
	if target == nil {
		return r.observe(ctx, "initial", "", func(ctx context.Context) ([]InputField, error) {
			return r.initialLoad(ctx, src)
		})
	}
	return r.observe(ctx, "dependent", target.Name, func(ctx context.Context) ([]InputField, error) {
		switch target.Field {
		case KeyBoard:
			return r.boardDependants(ctx, src, target.Value)
		default:
			return []InputField{}, nil
		}
	})
}

// BoardsOnly returns the board selector without dependants.
func (r *Resolver) BoardsOnly(ctx context.Context, src Source) ([]InputField, error) {
	return r.observe(ctx, "boards", "", func(ctx context.Context) ([]InputField, error) {
		boards, err := src.Boards(ctx)
		if err != nil {
			return nil, err
		}
		return []InputField{BoardsField(boards, nil)}, nil
	})
}

// ResolveAllBoards returns member and list selectors spanning every open
// board, for hosts that cannot render dependent fields.
func (r *Resolver) ResolveAllBoards(ctx context.Context, src Source) ([]InputField, error) {
	return r.observe(ctx, "flat", "", func(ctx context.Context) ([]InputField, error) {
		boards, err := src.Boards(ctx)
		if err != nil {
			return nil, err
		}

		var (
			members []trello.Member
			lists   []trello.List
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			members, err = src.MembersForBoards(gctx, boards)
			return err
		})
		g.Go(func() error {
			var err error
			lists, err = src.ListsForBoards(gctx, boards)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return []InputField{MembersField(members), ListsField(lists)}, nil
	})
}

func (r *Resolver) initialLoad(ctx context.Context, src Source) ([]InputField, error) {
	boards, err := src.Boards(ctx)
	if err != nil {
		return nil, err
	}
	if r.mode == ModeLegacy {
		return []InputField{BoardsField(boards, DependsOnAll())}, nil
	}
	return []InputField{
		BoardsField(boards, DependsOn(KeyIDList, KeyIDMembers)),
		ListsField(nil),
		MembersField(nil),
	}, nil
}

// boardDependants validates the board ID before any call, then fetches the
// board's lists and members in parallel. Either failure fails the whole call.
func (r *Resolver) boardDependants(ctx context.Context, src Source, boardID string) ([]InputField, error) {
	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return nil, trello.Rejected(MsgBoardBlank)
	}
	if !ValidID(boardID) {
		return nil, trello.Rejected(MsgBoardFormat)
	}

	var (
		lists   []trello.List
		members []trello.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lists, err = src.BoardLists(gctx, boardID)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = src.BoardMembers(gctx, boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return []InputField{ListsField(lists), MembersField(members)}, nil
}

func (r *Resolver) observe(ctx context.Context, state, target string, fn func(context.Context) ([]InputField, error)) ([]InputField, error) {
	ctx, span := telemetry.Tracer("boardlink.fields").Start(ctx, "fields."+state, trace.WithAttributes(
		telemetry.ResolveAttributes(target, 0)...,
	))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "fields")
	out, err := fn(ctx)
	if err != nil {
		kind := trello.KindOf(err).String()
		metrics.RecordFieldResolution(state, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		logger.Info().
			Err(err).
			Str(xglog.FieldEvent, "fields.resolve_failed").
			Str(xglog.FieldTarget, target).
			Str(xglog.FieldErrorKind, kind).
			Msg("field resolution failed")
		return nil, err
	}

	metrics.RecordFieldResolution(state, "success")
	span.SetAttributes(telemetry.ResolveAttributes(target, len(out))...)
	logger.Debug().
		Str(xglog.FieldEvent, "fields.resolved").
		Str(xglog.FieldTarget, target).
		Int(xglog.FieldFieldCount, len(out)).
		Msg("fields resolved")
	return out, nil
}
