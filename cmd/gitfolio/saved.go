package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
	"github.com/rohankatakam/gitfolio/internal/output"
)

var savedRemote bool

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved analyses",
	Long: `Keep analyses for later. By default saved analyses live in local storage;
--remote uses the list kept by the GitFolio backend instead.`,
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses",
	Args:  cobra.NoArgs,
	RunE:  runSavedList,
}

var savedShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedShow,
}

var savedSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the most recent analysis",
	Args:  cobra.NoArgs,
	RunE:  runSavedSave,
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedDelete,
}

func init() {
	savedCmd.PersistentFlags().BoolVar(&savedRemote, "remote", false, "use the backend's saved analyses")

	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedShowCmd)
	savedCmd.AddCommand(savedSaveCmd)
	savedCmd.AddCommand(savedDeleteCmd)
}

func runSavedList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	header := table.Row{"ID", "Repository", "User", "Commits", "Created", "Tech Stack"}

	if savedRemote {
		analyses, err := a.backendClient().ListSaved(ctx)
		if err != nil {
			return err
		}
		if len(analyses) == 0 {
			fmt.Fprintln(w, "No saved analyses.")
			return nil
		}
		tbl := newTable(w)
		tbl.AppendHeader(header)
		for _, s := range analyses {
			tbl.AppendRow(table.Row{
				s.ID, s.Owner + "/" + s.Repo, s.Username, s.CommitCount,
				s.CreatedAt.Local().Format("2006-01-02"), techSummary(s.TechStack),
			})
		}
		tbl.Render()
		return nil
	}

	analyses, err := a.archive.List(ctx)
	if err != nil {
		return err
	}
	if len(analyses) == 0 {
		fmt.Fprintln(w, "No saved analyses. Save the last one with 'gitfolio saved save'.")
		return nil
	}
	tbl := newTable(w)
	tbl.AppendHeader(header)
	for _, s := range analyses {
		var tech []string
		if s.Result != nil {
			tech = s.Result.TechStack
		}
		tbl.AppendRow(table.Row{
			shortID(s.ID), s.Owner + "/" + s.Repo, s.Username, s.Count,
			s.Timestamp.Local().Format("2006-01-02"), techSummary(tech),
		})
	}
	tbl.Render()
	return nil
}

func runSavedShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if savedRemote {
		id, err := remoteID(args[0])
		if err != nil {
			return err
		}
		s, err := a.backendClient().GetSaved(ctx, id)
		if err != nil {
			return err
		}
		last := models.LastAnalysis{
			Owner:     s.Owner,
			Repo:      s.Repo,
			Username:  s.Username,
			Count:     s.CommitCount,
			Markdown:  s.Markdown,
			Timestamp: s.CreatedAt,
		}
		return output.RenderLast(cmd.OutOrStdout(), last, format)
	}

	s, err := findLocal(ctx, a, args[0])
	if err != nil {
		return err
	}
	return output.RenderLast(cmd.OutOrStdout(), s.LastAnalysis, format)
}

func runSavedSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if savedRemote {
		return errors.ValidationErrorf("the backend saves analyses itself; 'saved save' only writes to local storage")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	last, found, err := a.archive.Last(ctx)
	if err != nil {
		return err
	}
	if !found {
		return errors.ValidationErrorf("no analysis to save; run 'gitfolio analyze owner/repo' first")
	}

	saved, err := a.archive.Save(ctx, last)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved %s/%s as %s\n", saved.Owner, saved.Repo, shortID(saved.ID))
	return nil
}

func runSavedDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if savedRemote {
		id, err := remoteID(args[0])
		if err != nil {
			return err
		}
		if err := a.backendClient().DeleteSaved(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted saved analysis %d\n", id)
		return nil
	}

	s, err := findLocal(ctx, a, args[0])
	if err != nil {
		return err
	}
	if err := a.archive.Delete(ctx, s.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted %s/%s (%s)\n", s.Owner, s.Repo, shortID(s.ID))
	return nil
}

// findLocal resolves a full ID or a unique prefix as shown by 'saved list'
func findLocal(ctx context.Context, a *app, ref string) (models.SavedAnalysis, error) {
	all, err := a.archive.List(ctx)
	if err != nil {
		return models.SavedAnalysis{}, err
	}

	var matches []models.SavedAnalysis
	for _, s := range all {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return models.SavedAnalysis{}, errors.ValidationErrorf("no saved analysis with id %q", ref)
	case 1:
		return matches[0], nil
	default:
		return models.SavedAnalysis{}, errors.ValidationErrorf("id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func remoteID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, errors.ValidationErrorf("backend ids are positive integers, got %q", s)
	}
	return id, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func techSummary(tech []string) string {
	if len(tech) == 0 {
		return "-"
	}
	if len(tech) > 4 {
		return strings.Join(tech[:4], ", ") + fmt.Sprintf(" +%d", len(tech)-4)
	}
	return strings.Join(tech, ", ")
}
