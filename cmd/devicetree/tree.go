package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnwards/devicetree/internal/config"
	"github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/tree"
)

func newTreeCmd(cfg *config.Config) *cobra.Command {
	var (
		depth   int
		profile string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the hierarchy expanded to --depth levels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if profile == "" {
				profile = cfg.RootProfile
			}

			var src hierarchySource
			if cfg.Source == config.SourceRemote {
				src = remoteSource(*cfg)
			} else {
				st, closeDB, err := openStore(ctx, *cfg)
				if err != nil {
					return err
				}
				defer closeDB()
				src = st
			}

			if cfg.FetchTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
				defer cancel()
			}
			return printTree(ctx, cmd.OutOrStdout(), src, src, hierarchyConfig(*cfg), profile, depth)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", -1, "levels to expand below the roots (-1 for all)")
	cmd.Flags().StringVar(&profile, "profile", "", "root asset profile (defaults to the configured root profile)")
	return cmd
}

// printTree builds a tree over the roots of profile, expands every node
// shallower than depth and writes one indented line per visible node.
func printTree(ctx context.Context, w io.Writer, src hierarchy.Source, finder session.RootFinder, hcfg hierarchy.Config, profile string, depth int) error {
	refs, err := finder.FindRoots(ctx, profile)
	if err != nil {
		return fmt.Errorf("find %s roots: %w", profile, err)
	}
	b := hierarchy.NewBuilder(src, hcfg)
	roots, err := b.Roots(ctx, refs)
	if err != nil {
		return fmt.Errorf("build roots: %w", err)
	}
	t := tree.New(b, roots)
	if err := t.ExpandAll(ctx, depth); err != nil {
		return err
	}
	for _, n := range t.Nodes() {
		if _, err := fmt.Fprintf(w, "%s%s  [%s %s]\n", strings.Repeat("  ", n.Level), n.Label, n.EntityType, n.ProfileType); err != nil {
			return err
		}
	}
	return nil
}
