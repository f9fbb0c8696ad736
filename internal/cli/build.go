// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
)

// HandleBuild handles "repochat build <url>".
func HandleBuild(args Args) error {
	if strings.TrimSpace(args.Repo) == "" {
		return ErrMissingArgument("repository URL", "repochat build https://github.com/user/repo")
	}
	if err := backend.ValidateRepoURL(args.Repo); err != nil {
		return NewValidationErrorWithExample("repository URL", args.Repo, backend.Describe(err),
			"repochat build https://github.com/user/repo")
	}

	cfg, client := clientFor(args)
	opts := buildOptions(cfg, args)

	if !args.Quiet && !args.JSON {
		fmt.Fprintf(errOut, "%s %s\n", DimStyle.Render("Building index for"), args.Repo)
		fmt.Fprintln(errOut, DimStyle.Render("This clones and embeds the repository; large repositories take a while."))
	}

	data, err := buildIndex(context.Background(), client, args.Repo, opts)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("build", data).Print()
	}
	if !args.Quiet {
		fmt.Fprintf(errOut, "%s FAISS index built for %s in %s\n",
			SuccessStyle.Render("[OK]"), data.Repo, formatDuration(time.Duration(data.DurationMs)*time.Millisecond))
		if data.IndexPath != "" {
			printField("Index path", data.IndexPath)
		}
		fmt.Fprintln(errOut, DimStyle.Render("Ask with: repochat ask --repo "+args.Repo+" \"your question\""))
	}
	return nil
}

// buildOptions merges command-line chunk settings over the config.
func buildOptions(cfg *config.Config, args Args) backend.BuildOptions {
	opts := backend.BuildOptions{
		Branch:       cfg.Backend.DefaultBranch,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	}
	if args.Branch != "" {
		opts.Branch = args.Branch
	}
	if args.ChunkSize > 0 {
		opts.ChunkSize = args.ChunkSize
	}
	if args.ChunkOverlap > 0 {
		opts.ChunkOverlap = args.ChunkOverlap
	}
	return opts
}

func buildIndex(ctx context.Context, client *backend.Client, repoURL string, opts backend.BuildOptions) (BuildData, error) {
	start := time.Now()
	resp, err := client.BuildIndex(ctx, repoURL, opts)
	if err != nil {
		return BuildData{}, err
	}

	repo := resp.Repo
	if repo == "" {
		repo = backend.RepoName(repoURL)
	}
	return BuildData{
		RepoURL:      repoURL,
		Repo:         repo,
		Status:       resp.Status,
		IndexPath:    resp.IndexPath,
		Branch:       opts.Branch,
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// formatDuration formats a duration as "850ms", "4.2s" or "2m 5s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
