package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tsumugi/internal/snapshots"
)

func newSnapshotsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <document-id>",
		Short: "List a document's persisted chapter snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := snapshots.Open(cfg.Paths.LibraryDir, args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			snaps, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No snapshots for %s.\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(snaps))
			for _, snap := range snaps {
				reviewed := ""
				if snap.ReviewedByUser {
					reviewed = "yes"
				}
				rows = append(rows, []string{
					strconv.Itoa(snap.Chapter),
					strconv.Itoa(len(snap.Characters)),
					strconv.Itoa(len(snap.Relationships)),
					strconv.Itoa(len(snap.Glossary)),
					strconv.Itoa(len(snap.Flags)),
					reviewed,
					strconv.Itoa(snap.UserCorrections),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Chapter", "Characters", "Relationships", "Terms", "Flags", "Reviewed", "Corrections"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <document-id> <chapter>",
		Short: "Show one chapter snapshot in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			chapter, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid chapter number %q", args[1])
			}

			store, err := snapshots.Open(cfg.Paths.LibraryDir, args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Load(cmd.Context(), chapter)
			if err != nil {
				return err
			}
			if snap == nil {
				return fmt.Errorf("no snapshot for %s chapter %d", args[0], chapter)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(snap)
			}

			fmt.Fprintf(out, "%s chapter %d (generated %s)\n", snap.DocumentID, snap.Chapter,
				snap.GeneratedAt.Format("2006-01-02 15:04"))

			charRows := make([][]string, 0, len(snap.Characters))
			for _, c := range snap.Characters {
				charRows = append(charRows, []string{
					c.CanonicalName, c.SourceName, string(c.Gender), string(c.Role), fmt.Sprintf("%.2f", c.Confidence),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Source Name", "Gender", "Role", "Confidence"},
				charRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))

			if len(snap.Relationships) > 0 {
				relRows := make([][]string, 0, len(snap.Relationships))
				for _, rel := range snap.Relationships {
					relRows = append(relRows, []string{
						rel.CharacterA + " & " + rel.CharacterB, string(rel.Type), rel.StateLabel,
						strconv.Itoa(rel.Intimacy), fmt.Sprintf("%.2f", rel.Confidence),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Pair", "Type", "State", "Intimacy", "Confidence"},
					relRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
			}

			if len(snap.Glossary) > 0 {
				termRows := make([][]string, 0, len(snap.Glossary))
				for _, term := range snap.Glossary {
					preserve := ""
					if term.Preserve {
						preserve = "yes"
					}
					termRows = append(termRows, []string{
						term.Source, term.Romaji, term.TranslationFor(cfg.Translation.TargetLanguage), preserve,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Term", "Romaji", "Translation", "Preserve"}, termRows, nil))
			}

			if len(snap.Flags) > 0 {
				fmt.Fprintf(out, "Flags: %v\n", snap.Flags)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the snapshot as JSON")
	return cmd
}
