package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tsumugi/internal/snapshots"
)

func newPacksCommand(ctx *commandContext) *cobra.Command {
	packsCmd := &cobra.Command{
		Use:   "packs",
		Short: "List exported continuity packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			docs, err := snapshots.ListDocuments(cfg.Paths.LibraryDir)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, doc := range docs {
				pack, err := snapshots.LoadPack(cfg.Paths.LibraryDir, doc)
				if err != nil {
					return err
				}
				if pack == nil {
					continue
				}
				rows = append(rows, []string{
					doc,
					pack.SeriesTitle,
					strconv.Itoa(pack.Volume),
					strconv.Itoa(len(pack.Roster)),
					strconv.Itoa(len(pack.Glossary)),
					pack.GeneratedAt.Format("2006-01-02"),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No continuity packs exported yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Document", "Series", "Volume", "Roster", "Glossary", "Generated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	packsCmd.AddCommand(newPacksShowCommand(ctx))
	return packsCmd
}

func newPacksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print one continuity pack as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pack, err := snapshots.LoadPack(cfg.Paths.LibraryDir, args[0])
			if err != nil {
				return err
			}
			if pack == nil {
				return fmt.Errorf("no continuity pack for %s", args[0])
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(pack)
		},
	}
}
