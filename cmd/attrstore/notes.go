package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// Note is the record kept in the notes domain.
type Note struct {
	ID       string     `attr:",key" json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	Body     string     `attr:"body" json:"body" yaml:"body"`
	Pinned   bool       `json:"pinned" yaml:"pinned"`
	Revision int        `json:"revision" yaml:"revision"`
	Created  time.Time  `json:"created" yaml:"created"`
	Updated  time.Time  `json:"updated" yaml:"updated"`
	Archived *time.Time `json:"archived,omitempty" yaml:"archived,omitempty"`
}

func (Note) DomainName() string { return "notes" }

func (a *app) domainCmd() *cobra.Command {
	domain := &cobra.Command{
		Use:   "domain",
		Short: "Manage the notes domain",
	}

	domain.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create the notes domain if it does not exist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.notes.EnsureDomain(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "domain %s ready\n", a.notes.DomainName())
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Delete the notes domain and every note in it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.store.DeleteDomain(cmd.Context(), a.notes.DomainName()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "domain %s deleted\n", a.notes.DomainName())
				return nil
			},
		},
	)
	return domain
}

func (a *app) putCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or update a note",
		Long: `Create or update a note. Only the fields named by flags are changed.
Without --id a new note is created with a random identifier.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			id, _ := flags.GetString("id")
			if id == "" {
				id = a.newID()
			}

			note, found, err := a.notes.Get(ctx, id)
			if err != nil {
				return err
			}

			now := a.now().UTC()
			if !found {
				note = Note{ID: id, Created: now}
			}

			if flags.Changed("title") {
				note.Title, _ = flags.GetString("title")
			}
			if flags.Changed("body") {
				note.Body, _ = flags.GetString("body")
			}
			if flags.Changed("body-file") {
				path, _ := flags.GetString("body-file")
				body, err := readBody(cmd, path)
				if err != nil {
					return err
				}
				note.Body = body
			}
			if flags.Changed("pinned") {
				note.Pinned, _ = flags.GetBool("pinned")
			}
			if flags.Changed("archived") {
				archived, _ := flags.GetBool("archived")
				switch {
				case archived && note.Archived == nil:
					note.Archived = &now
				case !archived:
					note.Archived = nil
				}
			}

			note.Revision++
			note.Updated = now

			if err := a.notes.Save(ctx, note); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), note)
		},
	}

	cmd.Flags().String("id", "", "note identifier")
	cmd.Flags().String("title", "", "note title")
	cmd.Flags().String("body", "", "note body")
	cmd.Flags().String("body-file", "", "read the note body from a file (- for stdin)")
	cmd.Flags().Bool("pinned", false, "pin the note")
	cmd.Flags().Bool("archived", false, "archive the note")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}

func readBody(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(b), nil
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, found, err := a.notes.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("note %s not found", args[0])
			}
			return a.print(cmd.OutOrStdout(), note)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every note, pinned notes first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := a.notes.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			if all, _ := cmd.Flags().GetBool("all"); !all {
				active := notes[:0]
				for _, note := range notes {
					if note.Archived == nil {
						active = append(active, note)
					}
				}
				notes = active
			}

			sort.SliceStable(notes, func(i, j int) bool {
				if notes[i].Pinned != notes[j].Pinned {
					return notes[i].Pinned
				}
				return notes[i].Created.Before(notes[j].Created)
			})

			if notes == nil {
				notes = []Note{}
			}
			return a.print(cmd.OutOrStdout(), notes)
		},
	}

	cmd.Flags().Bool("all", false, "include archived notes")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.notes.Delete(cmd.Context(), args...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notes\n", len(args))
			return nil
		},
	}
}
