// # cmd/coffeegraph/why.go
package main

import (
	"context"
	"fmt"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/core/errors"
	"coffeegraph/internal/shared/util"

	"github.com/spf13/cobra"
)

func newWhyCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "why <from> <to>",
		Short: "Show the shortest dependency chain between two files",
		Long: `Analyze the configured sources and print how <from> comes to depend
on <to>. Sources default to the config file; pass them after -- to override:

  coffeegraph why src/app.coffee src/base.coffee -- src/`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if len(args) > 2 {
				cfg.Sources = args[2:]
			}
			if len(cfg.Sources) == 0 {
				return errors.New(errors.CodeNoInput, "no sources configured")
			}

			from, err := util.CanonicalPath(args[0])
			if err != nil {
				return err
			}
			to, err := util.CanonicalPath(args[1])
			if err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context(), cfg, app.ExporterFunc(discard))
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			build, err := rt.builder.Build(cmd.Context(), cfg.Sources)
			if err != nil {
				return err
			}
			chain, ok := build.Why(from, to)
			if !ok {
				return errors.AddContext(
					errors.New(errors.CodeNotFound, fmt.Sprintf("%s does not depend on %s", args[0], args[1])),
					errors.CtxPaths, []string{from, to},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatChain(chain))
			return nil
		},
	}
}

func discard(context.Context, *app.Build) error { return nil }
