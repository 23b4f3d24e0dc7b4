package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"metadesk-backend/internal/auth"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
	"metadesk-backend/internal/urlquery"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var seedDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend entity tables, optionally loading seed records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(rootOpts)
			if err != nil {
				return err
			}
			defer rt.logger.Sync() //nolint:errcheck

			db, models, err := rt.openModels(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if seedDir != "" {
				return models.Seed(cmd.Context(), seedDir, rt.logger)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seedDir, "seed", "", "directory of <entity>.yaml seed files")
	return cmd
}

func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the agent list tool briefing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(rootOpts)
			if err != nil {
				return err
			}
			tool, err := newTool(rt, noModels)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tool.Description())
			return nil
		},
	}
}

func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "compile <entity> [querystring]",
		Short: "Print the backend query a list URL compiles to",
		Example: `  metadesk compile businessUnit 'page=2&sort=name:desc&search=acme'
  metadesk compile location 'filter[name$contains]=HQ'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(rootOpts)
			if err != nil {
				return err
			}
			raw := ""
			if len(args) == 2 {
				raw = strings.TrimPrefix(args[1], "?")
			}
			out, err := compileListQuery(rt, args[0], locale, raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "locale for labels (default: metadata.default_locale)")
	return cmd
}

type compiled struct {
	Entity string             `json:"entity"`
	State  urlquery.State     `json:"state"`
	Query  query.BackendQuery `json:"query"`
}

func compileListQuery(rt *env, entityName, locale, rawQuery string) (*compiled, error) {
	if locale == "" {
		locale = rt.cfg.Metadata.DefaultLocale
	}
	entity, err := rt.registry.Entity(entityName, locale)
	if err != nil {
		return nil, err
	}

	requested := urlquery.Decode(rawQuery, urlquery.State{}).View
	_, view := entity.ActiveView(requested)
	defaults := urlquery.Defaults(entity.Display.View, view, rt.cfg.Query.DefaultSize)
	state := urlquery.Decode(rawQuery, defaults)

	c := query.Compiler{CaseInsensitive: rt.cfg.Query.CaseInsensitiveSearch}
	q := c.Compile(state.Descriptor, entity.SearchFields())
	return &compiled{Entity: entity.Name, State: state, Query: q}, nil
}

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		user  metadata.UserContext
		ttl   time.Duration
		roles string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with jwt_secret, for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(rootOpts)
			if err != nil {
				return err
			}
			if roles != "" {
				user.Roles = strings.Split(roles, ",")
			}
			token, err := auth.GenerateAccessToken(user, rt.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.ID, "user", "dev", "subject")
	cmd.Flags().StringVar(&user.OrganizationID, "org", "", "organization")
	cmd.Flags().StringVar(&roles, "roles", "", "comma separated roles")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func NewHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Print the bcrypt hash of an agent API key for agent.api_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
