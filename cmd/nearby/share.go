package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newShareCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "share <slug>",
		Short: "Print a stored search as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.share(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

// share prints the snapshot and its public link. Reading counts as a view.
func (e *env) share(ctx context.Context, w io.Writer, slug string) error {
	s, err := e.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	m := e.snapshots(s)
	entry, err := m.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get %q: %w", slug, err)
	}

	out := struct {
		ShareURL string `json:"shareUrl"`
		Entry    any    `json:"snapshot"`
	}{ShareURL: m.ShareURL(entry.Slug), Entry: entry}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
