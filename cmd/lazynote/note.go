package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazynote/internal/model"
	"github.com/Joseda-hg/lazynote/internal/note"
)

var (
	listJSON  bool
	listState string
	filterTag string
	search    string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes without the terminal browser",
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes in one lifecycle state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		state, ok := model.ParseState(listState)
		if !ok {
			fatal("Error listing notes", fmt.Errorf("unknown state %q", listState))
		}

		a, err := openApp()
		if err != nil {
			fatal("Error opening store", err)
		}
		defer a.Close()

		filter := model.Filter{Search: search}
		if filterTag != "" {
			filter.TagID = &filterTag
		}
		page, err := a.notes.List(context.Background(), a.cfg.OwnerID, state, filter, model.Pagination{Limit: model.MaxPageLimit})
		if err != nil {
			fatal("Error listing notes", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(page); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, row := range note.Tree(page.Data, nil) {
			title := "(untitled)"
			if row.Note.Title != nil {
				title = *row.Note.Title
			}
			fmt.Printf("%s %s%s\n", row.Note.ID, strings.Repeat("  ", row.Depth), title)
		}
	},
}

// lifecycleCmd runs one bulk transition over the ids given as arguments.
func lifecycleCmd(use, short, verb string, run func(*note.Service, context.Context, []string, string) ([]model.Note, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := openApp()
			if err != nil {
				fatal("Error opening store", err)
			}
			defer a.Close()

			changed, err := run(a.notes, context.Background(), args, a.cfg.OwnerID)
			if err != nil {
				fatal("Error updating notes", err)
			}
			for _, n := range changed {
				fmt.Printf("Note %s: %s\n", verb, n.ID)
			}
			if skipped := len(args) - len(changed); skipped > 0 {
				fmt.Printf("%d skipped\n", skipped)
			}
		},
	}
}

var notePurgeCmd = &cobra.Command{
	Use:   "purge [id]",
	Short: "Permanently remove a note and its task, event and tag links",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fatal("Error opening store", err)
		}
		defer a.Close()

		if err := a.notes.HardDelete(context.Background(), args[0], a.cfg.OwnerID); err != nil {
			fatal("Error purging note", err)
		}
		fmt.Printf("Note purged: %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteListCmd, notePurgeCmd,
		lifecycleCmd("archive", "Archive active notes", "archived", (*note.Service).ArchiveMany),
		lifecycleCmd("unarchive", "Return archived notes to active", "unarchived", (*note.Service).UnarchiveMany),
		lifecycleCmd("delete", "Move notes to the trash", "deleted", (*note.Service).SoftDeleteMany),
		lifecycleCmd("restore", "Restore notes from the trash", "restored", (*note.Service).RestoreMany),
	)

	noteListCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	noteListCmd.Flags().StringVar(&listState, "state", string(model.StateActive), "active, archived or deleted")
	noteListCmd.Flags().StringVar(&filterTag, "tag", "", "Filter notes by tag id")
	noteListCmd.Flags().StringVarP(&search, "search", "s", "", "Search title and body")
}
