// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/boardlink/internal/fields"
	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/methods"
	"github.com/ManuGH/boardlink/internal/pollcache"
	"github.com/ManuGH/boardlink/internal/trello"
)

// Credential environment fallbacks for the one-shot commands.
const (
	envConsumerKey    = "BOARDLINK_TRELLO_KEY"
	envConsumerSecret = "BOARDLINK_TRELLO_SECRET"
	envToken          = "BOARDLINK_TRELLO_TOKEN"
	envTokenSecret    = "BOARDLINK_TRELLO_TOKEN_SECRET"
)

var errMissingCredentials = errors.New("missing Trello credentials: set --key and --token or " + envConsumerKey + " and " + envToken)

// invokeFlags are shared by the commands that call a method once.
type invokeFlags struct {
	creds        trello.Credentials
	connectionID string
}

func (f *invokeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.creds.ConsumerKey, "key", "", "Trello API key (env "+envConsumerKey+")")
	cmd.Flags().StringVar(&f.creds.ConsumerSecret, "secret", "", "Trello API secret (env "+envConsumerSecret+")")
	cmd.Flags().StringVar(&f.creds.Token, "token", "", "Trello user token (env "+envToken+")")
	cmd.Flags().StringVar(&f.creds.TokenSecret, "token-secret", "", "Trello token secret (env "+envTokenSecret+")")
	cmd.Flags().StringVar(&f.connectionID, "connection-id", "cli", "connection identifier used to scope poll state")
}

func (f *invokeFlags) credentials() (trello.Credentials, error) {
	c := f.creds
	fallback(&c.ConsumerKey, envConsumerKey)
	fallback(&c.ConsumerSecret, envConsumerSecret)
	fallback(&c.Token, envToken)
	fallback(&c.TokenSecret, envTokenSecret)
	if c.ConsumerKey == "" || c.Token == "" {
		return trello.Credentials{}, errMissingCredentials
	}
	return c, nil
}

func fallback(dst *string, key string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(os.Getenv(key))
	}
}

// session is a method environment plus the store it owns.
type session struct {
	registry *methods.Registry
	env      methods.Env
	store    pollcache.Store
}

func (s *session) Close() error { return s.store.Close() }

func openSession(ctx context.Context, opts *cliOptions, f *invokeFlags) (*session, error) {
	creds, err := f.credentials()
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(opts, os.Stderr)
	if err != nil {
		return nil, err
	}
	mode, err := fields.ParseMode(cfg.FieldMode)
	if err != nil {
		return nil, err
	}
	store, err := openPollStore(ctx, cfg, xglog.WithComponent("cli"))
	if err != nil {
		return nil, err
	}
	return &session{
		registry: methods.Default(),
		store:    store,
		env: methods.Env{
			Client:       trello.NewClient(newExecutor(cfg), creds),
			Resolver:     fields.NewResolver(mode),
			Poll:         pollcache.NewEngine(store),
			ConnectionID: f.connectionID,
		},
	}, nil
}

func newPollCmd(opts *cliOptions) *cobra.Command {
	f := &invokeFlags{}
	var boardID string
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll a board once and print cards not seen before",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMethod(cmd, opts, f, "new_card", methods.Values{fields.KeyIDBoard: boardID})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&boardID, "board", "", "board to poll")
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	f := &invokeFlags{}
	var rawValues string
	cmd := &cobra.Command{
		Use:   "run <method>",
		Short: "Run a method once with JSON input values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(rawValues)
			if err != nil {
				return err
			}
			return runMethod(cmd, opts, f, args[0], values)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&rawValues, "values", "{}", "input values as a JSON object")
	return cmd
}

func newFieldsCmd(opts *cliOptions) *cobra.Command {
	f := &invokeFlags{}
	var target string
	var flat bool
	cmd := &cobra.Command{
		Use:   "fields <method>",
		Short: "Resolve the input fields of a method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := methods.InputRequest{Flat: flat}
			if target != "" {
				name, value, ok := strings.Cut(target, "=")
				if !ok {
					return fmt.Errorf("invalid --target %q: want field=value", target)
				}
				req.Target = fields.NewTarget(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			s, err := openSession(cmd.Context(), opts, f)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out, err := s.registry.Input(cmd.Context(), args[0], s.env, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&target, "target", "", "changed field as field=value, e.g. idBoard=abc123")
	cmd.Flags().BoolVar(&flat, "flat", false, "resolve every board's dependants at once")
	return cmd
}

func runMethod(cmd *cobra.Command, opts *cliOptions, f *invokeFlags, slug string, values methods.Values) error {
	if _, ok := methods.Default().Get(slug); !ok {
		return fmt.Errorf("%w: %s", methods.ErrUnknownMethod, slug)
	}
	s, err := openSession(cmd.Context(), opts, f)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	out, err := s.registry.Run(cmd.Context(), slug, s.env, values)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func parseValues(raw string) (methods.Values, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var values methods.Values
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid --values: %w", err)
	}
	if values == nil {
		values = methods.Values{}
	}
	return values, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
