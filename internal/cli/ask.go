// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/storage"
	"github.com/jeranaias/repochat/internal/ui/components"
)

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk handles `repochat ask --repo <url> "question"`.
func HandleAsk(args Args) error {
	if strings.TrimSpace(args.Repo) == "" {
		return ErrMissingArgument("--repo", `repochat ask --repo https://github.com/user/repo "What does it do?"`)
	}
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("question", `repochat ask --repo `+args.Repo+` "What does it do?"`)
	}

	cfg, client := clientFor(args)
	k := resolveK(cfg, args)
	if k < 1 || k > 50 {
		return NewValidationErrorWithExample("k", fmt.Sprint(k), "must be between 1 and 50", "-k 5")
	}

	// Ctrl+C cancels the request instead of killing the process mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if args.Build {
		if !args.Quiet && !args.JSON {
			fmt.Fprintf(errOut, "%s %s\n", DimStyle.Render("Building index for"), args.Repo)
		}
		if _, err := buildIndex(ctx, client, args.Repo, buildOptions(cfg, args)); err != nil {
			return err
		}
	}

	data, err := ask(ctx, client, args.Repo, args.Query, k)
	if err != nil {
		return err
	}
	data.HistoryID = recordAnswer(ctx, cfg, historyEntry(data))

	if args.JSON {
		return NewJSONResponse("ask", data).Print()
	}
	printAnswer(cfg, data, args.Quiet)
	return nil
}

func resolveK(cfg *config.Config, args Args) int {
	if args.K != 0 {
		return args.K
	}
	return cfg.Query.K
}

func ask(ctx context.Context, client *backend.Client, repoURL, question string, k int) (AskData, error) {
	start := time.Now()
	resp, err := client.Query(ctx, repoURL, question, k)
	if err != nil {
		return AskData{}, err
	}

	sources := resp.SourceChunks
	if sources == nil {
		sources = []string{}
	}
	return AskData{
		RepoURL:    repoURL,
		Repo:       backend.RepoName(repoURL),
		Question:   question,
		Answer:     resp.Answer,
		Sources:    sources,
		K:          k,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func historyEntry(d AskData) *storage.Entry {
	return &storage.Entry{
		RepoURL:    d.RepoURL,
		Repo:       d.Repo,
		Question:   d.Question,
		Answer:     d.Answer,
		Sources:    append([]string{}, d.Sources...),
		K:          d.K,
		DurationMs: d.DurationMs,
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// printAnswer writes the answer to stdout, as rendered markdown when stdout
// is a terminal, followed by the source files.
func printAnswer(cfg *config.Config, d AskData, quiet bool) {
	fmt.Fprintln(out, renderAnswer(cfg, d.Answer))
	if quiet {
		return
	}

	list := components.SourceList{
		Sources:      d.Sources,
		ShowLanguage: cfg.UI.ShowSourceLanguage,
		Width:        GetTerminalWidth(),
	}
	if lines := list.Lines(); len(lines) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Source Files:")
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintln(errOut, DimStyle.Render(fmt.Sprintf("%s | k=%d | %s",
		d.Repo, d.K, formatDuration(time.Duration(d.DurationMs)*time.Millisecond))))
}

// renderAnswer renders markdown only for a terminal so piped output stays
// the backend's raw text.
func renderAnswer(cfg *config.Config, answer string) string {
	if !cfg.UI.RenderMarkdown || !IsStdoutTTY() {
		return answer
	}
	width := GetTerminalWidth()
	if width > MaxRenderWidth {
		width = MaxRenderWidth
	}
	rendered, err := components.NewMarkdownRenderer(cfg.UI.Theme).Render(answer, width)
	if err != nil {
		return answer
	}
	return rendered
}
