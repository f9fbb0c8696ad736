// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/repochat/internal/export"
	"github.com/jeranaias/repochat/internal/storage"
	"github.com/jeranaias/repochat/internal/ui/components"
)

const defaultHistoryLimit = 20

// HandleHistory handles "repochat history [list|show|export|delete|clear]".
func HandleHistory(args Args) error {
	cfg := EffectiveConfig(args)
	store, err := OpenHistory(cfg)
	if err != nil {
		return NewCommandError("history", "open", "could not open the history database", err)
	}
	defer store.Close()

	ctx := context.Background()
	switch strings.ToLower(args.Subcommand) {
	case "", "list", "ls":
		return historyList(ctx, store, args)
	case "show":
		return historyShow(ctx, store, args)
	case "export":
		return historyExport(ctx, store, args)
	case "delete", "rm":
		return historyDelete(ctx, store, args)
	case "clear":
		return historyClear(ctx, store, args)
	default:
		return NewValidationErrorWithExample("history subcommand", args.Subcommand,
			"unknown subcommand", "repochat history [list|show|export|delete|clear]")
	}
}

func listOptions(args Args) (storage.ListOptions, error) {
	opts := storage.ListOptions{
		Repo:   args.Options["repo"],
		Search: args.Options["search"],
		Limit:  defaultHistoryLimit,
	}
	if v, ok := args.Options["limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, NewValidationErrorWithExample("limit", v, "must be a non-negative integer", "--limit 50")
		}
		opts.Limit = n
	}
	return opts, nil
}

func historyList(ctx context.Context, store *storage.HistoryStore, args Args) error {
	opts, err := listOptions(args)
	if err != nil {
		return err
	}
	entries, err := store.List(ctx, opts)
	if err != nil {
		return NewCommandError("history", "list", "query failed", err)
	}

	if args.JSON {
		return NewJSONResponse("history list", entries).Print()
	}
	fmt.Fprintln(out, strings.TrimRight(storage.FormatHistoryList(entries), "\n"))
	return nil
}

func historyShow(ctx context.Context, store *storage.HistoryStore, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("id", "repochat history show 1a2b3c4d")
	}
	entry, err := store.Get(ctx, args.Query)
	if errors.Is(err, storage.ErrEntryNotFound) {
		return NewNotFoundError("history entry", args.Query)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history show", entry).Print()
	}

	cfg := EffectiveConfig(args)
	printTitle(entry.Preview(60))
	printField("ID", entry.ID)
	printField("Repository", entry.RepoURL)
	printField("Asked", entry.CreatedAt.Format("2006-01-02 15:04:05"))
	printField("k", entry.K)
	printField("Took", formatDuration(time.Duration(entry.DurationMs)*time.Millisecond))
	fmt.Fprintln(errOut)

	fmt.Fprintln(out, renderAnswer(cfg, entry.Answer))
	list := components.SourceList{Sources: entry.Sources, ShowLanguage: cfg.UI.ShowSourceLanguage}
	if lines := list.Lines(); len(lines) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Source Files:")
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

func historyExport(ctx context.Context, store *storage.HistoryStore, args Args) error {
	opts, err := listOptions(args)
	if err != nil {
		return err
	}
	if _, ok := args.Options["limit"]; !ok {
		opts.Limit = 0
	}
	entries, err := store.List(ctx, opts)
	if err != nil {
		return NewCommandError("history", "export", "query failed", err)
	}
	if len(entries) == 0 {
		return NewNotFoundError("history entries", describeFilter(opts))
	}

	// Exports read top to bottom in the order the questions were asked.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	exportOpts := export.DefaultOptions()
	exportOpts.OutputPath = args.Options["output"]
	format := args.Options["format"]
	exporter, err := export.ForFormat(format, exportOpts)
	if err != nil {
		return NewValidationErrorWithExample("format", format, err.Error(), "--format md")
	}

	path, err := export.ExportToFile(entries, exporter, exportOpts)
	if err != nil {
		return NewCommandError("history", "export", "write failed", err)
	}

	if args.JSON {
		return NewJSONResponse("history export", HistoryExportData{
			Path:    path,
			Format:  strings.TrimPrefix(exporter.FileExtension(), "."),
			Entries: len(entries),
		}).Print()
	}
	fmt.Fprintf(errOut, "%s exported %d entries to %s\n", SuccessStyle.Render("[OK]"), len(entries), path)
	return nil
}

func describeFilter(opts storage.ListOptions) string {
	var parts []string
	if opts.Repo != "" {
		parts = append(parts, "repo="+opts.Repo)
	}
	if opts.Search != "" {
		parts = append(parts, "search="+opts.Search)
	}
	if len(parts) == 0 {
		return "(none stored)"
	}
	return strings.Join(parts, " ")
}

func historyDelete(ctx context.Context, store *storage.HistoryStore, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("id", "repochat history delete 1a2b3c4d")
	}
	entry, err := store.Get(ctx, args.Query)
	if errors.Is(err, storage.ErrEntryNotFound) {
		return NewNotFoundError("history entry", args.Query)
	}
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, entry.ID); err != nil {
		return NewCommandError("history", "delete", "delete failed", err)
	}

	if args.JSON {
		return NewJSONResponse("history delete", map[string]string{"id": entry.ID}).Print()
	}
	fmt.Fprintf(errOut, "%s deleted %s\n", SuccessStyle.Render("[OK]"), entry.ID)
	return nil
}

func historyClear(ctx context.Context, store *storage.HistoryStore, args Args) error {
	confirmed, err := RequireConfirmation(args.Options["confirm"] == "true", "delete all history", args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(errOut, DimStyle.Render("Cancelled."))
		return nil
	}

	n, err := store.Clear(ctx)
	if err != nil {
		return NewCommandError("history", "clear", "delete failed", err)
	}

	if args.JSON {
		return NewJSONResponse("history clear", map[string]int{"deleted": n}).Print()
	}
	fmt.Fprintf(errOut, "%s deleted %d entries\n", SuccessStyle.Render("[OK]"), n)
	return nil
}
