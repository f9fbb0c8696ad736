// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in the config directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of one REPL run.
type ChatSession struct {
	Config  *config.Config
	Client  *backend.Client
	RepoURL string
	K       int
	Quiet   bool

	// Asked counts answered questions, for the exit line.
	Asked int
}

// NewChatSession creates a session from the parsed arguments.
func NewChatSession(args Args) *ChatSession {
	cfg, client := clientFor(args)
	return &ChatSession{
		Config:  cfg,
		Client:  client,
		RepoURL: strings.TrimSpace(args.Repo),
		K:       resolveK(cfg, args),
		Quiet:   args.Quiet,
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the line-mode REPL.
func HandleChat(args Args) error {
	if args.JSON {
		return NewValidationError("--json", "", "chat is interactive; use ask for JSON output")
	}
	if err := requireTTY("chat"); err != nil {
		return err
	}

	session := NewChatSession(args)
	ctx := context.Background()

	if err := session.Client.CheckRunning(ctx); err != nil {
		return err
	}
	if args.Build && session.RepoURL != "" {
		if err := session.build(ctx, session.RepoURL, args.Branch); err != nil {
			return err
		}
	}

	if !session.Quiet {
		printChatWelcome(session)
	}

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput(PromptStyle.Render(session.prompt()))
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and Ctrl+D both end the session.
			fmt.Fprintln(errOut)
			session.printExit()
			return nil
		}

		cont, err := session.Handle(ctx, line)
		if err != nil {
			fmt.Fprintf(errOut, "%s %s\n", ErrorStyle.Render("[Error]"), describeError(err))
			if hint := errorHint(err); hint != "" {
				fmt.Fprintln(errOut, DimStyle.Render(hint))
			}
		}
		if !cont {
			session.printExit()
			return nil
		}
	}
}

func requireTTY(operation string) error {
	if !IsTTY() {
		return NewValidationError("stdin", "", "not a terminal; cannot "+operation+" interactively")
	}
	return nil
}

func (s *ChatSession) prompt() string {
	if s.RepoURL == "" {
		return "repochat> "
	}
	return backend.RepoName(s.RepoURL) + "> "
}

// Handle processes one input line and reports whether the REPL continues.
func (s *ChatSession) Handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return true, nil
	}
	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return false, nil
	}
	if strings.HasPrefix(line, "/") {
		return s.handleSlash(ctx, line)
	}
	return true, s.ask(ctx, line)
}

func (s *ChatSession) ask(ctx context.Context, question string) error {
	if s.RepoURL == "" {
		return NewValidationErrorWithExample("repository", "", "no repository selected",
			"/repo https://github.com/user/repo")
	}

	// Ctrl+C while waiting cancels the request; the prompt stays.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	data, err := ask(ctx, s.Client, s.RepoURL, question, s.K)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(errOut, WarningStyle.Render("[Cancelled]"))
			return nil
		}
		return err
	}
	recordAnswer(ctx, s.Config, historyEntry(data))
	s.Asked++

	fmt.Fprintln(out)
	printAnswer(s.Config, data, s.Quiet)
	fmt.Fprintln(out)
	return nil
}

func (s *ChatSession) build(ctx context.Context, repoURL, branch string) error {
	if err := backend.ValidateRepoURL(repoURL); err != nil {
		return err
	}
	opts := buildOptions(s.Config, Args{Branch: branch})
	fmt.Fprintf(errOut, "%s %s\n", DimStyle.Render("Building index for"), repoURL)

	data, err := buildIndex(ctx, s.Client, repoURL, opts)
	if err != nil {
		return err
	}
	s.RepoURL = repoURL
	fmt.Fprintf(errOut, "%s FAISS index built for %s\n", SuccessStyle.Render("[OK]"), data.Repo)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (s *ChatSession) handleSlash(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil

	case "/help", "/?":
		printChatHelp(errOut)

	case "/repo":
		if len(rest) == 0 {
			if s.RepoURL == "" {
				fmt.Fprintln(errOut, DimStyle.Render("No repository selected."))
			} else {
				printField("Repository", s.RepoURL)
			}
			return true, nil
		}
		if err := backend.ValidateRepoURL(rest[0]); err != nil {
			return true, err
		}
		s.RepoURL = rest[0]
		fmt.Fprintf(errOut, "%s asking about %s\n", SuccessStyle.Render("[OK]"), backend.RepoName(s.RepoURL))

	case "/build":
		target := s.RepoURL
		if len(rest) > 0 {
			target = rest[0]
		}
		if target == "" {
			return true, ErrMissingArgument("repository URL", "/build https://github.com/user/repo")
		}
		branch := ""
		if len(rest) > 1 {
			branch = rest[1]
		}
		return true, s.build(ctx, target, branch)

	case "/k":
		if len(rest) == 0 {
			printField("k", s.K)
			return true, nil
		}
		k, err := ParseIntWithValidation(rest[0], "k")
		if err != nil || k > 50 {
			return true, NewValidationErrorWithExample("k", rest[0], "must be between 1 and 50", "/k 5")
		}
		s.K = k

	case "/status":
		if err := s.Client.CheckRunning(ctx); err != nil {
			return true, err
		}
		fmt.Fprintf(errOut, "%s backend at %s\n", RenderStatus("online"), s.Client.BaseURL())
		if stats := s.Client.CacheStats(); stats.Enabled {
			fmt.Fprintf(errOut, "  answer cache: %d entries, %d hits, %d misses\n", stats.Size, stats.Hits, stats.Misses)
		} else {
			fmt.Fprintln(errOut, "  answer cache: off")
		}

	default:
		return true, NewValidationErrorWithExample("command", cmd, "unknown command", "/help")
	}
	return true, nil
}

func printChatWelcome(s *ChatSession) {
	printTitle("repochat chat")
	printField("Backend", s.Client.BaseURL())
	if s.RepoURL != "" {
		printField("Repository", s.RepoURL)
	}
	printField("k", s.K)
	fmt.Fprintln(errOut, DimStyle.Render("Type a question, /help for commands, Ctrl+D to quit."))
	fmt.Fprintln(errOut)
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, SectionStyle.Render("Commands"))
	fmt.Fprintln(w, "  /repo [url]            Show or switch the repository")
	fmt.Fprintln(w, "  /build [url] [branch]  Build the index, then switch to it")
	fmt.Fprintln(w, "  /k [n]                 Show or set chunks per question")
	fmt.Fprintln(w, "  /status                Check the backend")
	fmt.Fprintln(w, "  /quit                  Leave (also: exit, Ctrl+D)")
}

func (s *ChatSession) printExit() {
	if s.Quiet {
		return
	}
	fmt.Fprintln(errOut, DimStyle.Render(fmt.Sprintf("%d question(s) answered.", s.Asked)))
}
