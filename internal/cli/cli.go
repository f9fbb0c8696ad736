// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jeranaias/repochat/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdBuild
	CmdAsk
	CmdChat
	CmdStatus
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name used in JSON responses.
func (c Command) String() string {
	switch c {
	case CmdBuild:
		return "build"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdStatus:
		return "status"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "tui"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	APIURL  string // --api overrides every other base URL source
	JSON    bool
	Quiet   bool
	Verbose bool
	NoColor bool

	// Command-specific
	Repo         string
	Query        string
	Branch       string
	K            int // 0 means the configured k
	ChunkSize    int
	ChunkOverlap int
	Build        bool // build the index before asking
	Subcommand   string
	ConfigKey    string
	ConfigVal    string

	// Raw args (remaining after the command name)
	Raw []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

const usageText = `repochat - chat with a GitHub repository

repochat is a terminal client for a RAG backend: it asks the backend to
index a repository, then answers questions about it with the source files
the answer came from.

Usage:
  repochat                          Start the TUI (default)
  repochat build <url>              Build the RAG index for a repository
  repochat ask --repo <url> "question"
                                    Ask a single question
  repochat chat --repo <url>        Interactive line-mode chat
  repochat status, s                Backend health and local state
  repochat history [subcommand]     Answered questions
  repochat config [show|get|set|path|keys]
                                    Configuration
  repochat version                  Version information
  repochat help                     This text

Build Options:
  --branch NAME                     Branch to index (default: remote HEAD)
  --chunk-size N                    Characters per chunk (default: 800)
  --chunk-overlap N                 Overlap between chunks (default: 100)

Ask / Chat Options:
  --repo URL                        Repository to ask about
  -k N                              Chunks retrieved per question (default: 5)
  --build                           Build the index first

History Commands:
  repochat history list             Newest answers first
    --repo NAME                     Only this repository
    --search TEXT                   Match question or answer text
    --limit N                       At most N entries (default: 20)
  repochat history show <id>        One entry; an unambiguous ID prefix works
  repochat history export           Write history to a file
    --format md|json                Export format (default: md)
    --output FILE                   Output path (default: generated name)
  repochat history delete <id>      Delete one entry
  repochat history clear --confirm  Delete every entry

Config Commands:
  repochat config show              Effective configuration
  repochat config get KEY           One effective value
  repochat config set KEY VALUE     Change a key in the config file
  repochat config path              Config file location
  repochat config keys              Every settable key

Global Flags:
  --api URL       Backend base URL (overrides config, .env and environment)
  --json          Output in JSON format
  -q, --quiet     Minimal output
  -v, --verbose   Log requests to stderr
  --no-color      Disable colors

Environment:
  REPOCHAT_API_BASE_URL   Backend base URL (VITE_API_BASE_URL also accepted)
  REPOCHAT_HOME           Config directory (default: ~/.repochat)
  REPOCHAT_DEBUG          Write TUI diagnostics to debug.log

Examples:
  repochat build https://github.com/user/repo
  repochat ask --repo https://github.com/user/repo "What does this library do?"
  repochat ask --repo https://github.com/user/repo -k 8 --json "Where is auth?"
  repochat chat --repo https://github.com/user/repo
  repochat history export --format json --output answers.json
  repochat config set ui.typewriter_interval_ms 10

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Fprintf(out, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Fprintf(out, "repochat version %s\n", Version)
	fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(out, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "build", "index":
		parseBuildArgs(&parsedArgs, remaining)
		return CmdBuild, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		parseAskArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "history", "h":
		parseHistoryArgs(&parsedArgs, remaining)
		return CmdHistory, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown words are a usage error rather than a silent TUI start.
		parsedArgs.Subcommand = cmd
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--no-color":
			parsedArgs.NoColor = true
		case "--api":
			if i+1 < len(args) {
				i++
				parsedArgs.APIURL = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--api=") {
				parsedArgs.APIURL = strings.TrimPrefix(arg, "--api=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// parseBuildArgs parses "build <url> [--branch B] [--chunk-size N] [--chunk-overlap N]".
func parseBuildArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Repo = p.FlagOrDefault("repo", p.Positional(0))
	args.Branch = p.Flag("branch")
	args.ChunkSize = p.FlagIntOrDefault("chunk-size", 0)
	args.ChunkOverlap = p.FlagIntOrDefault("chunk-overlap", 0)
}

// parseAskArgs parses "ask --repo <url> [-k N] [--branch B] [--build] question...".
func parseAskArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining, "build")
	args.Repo = p.Flag("repo")
	if args.Repo == "" {
		args.Repo = p.Flag("r")
	}
	args.Branch = p.Flag("branch")
	args.Build = p.BoolFlag("build")
	args.K = p.FlagIntOrDefault("k", 0)
	args.Query = JoinPositionalArgs(p, 0)
}

// parseHistoryArgs parses history subcommands and their options.
func parseHistoryArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining, "confirm")
	args.Subcommand = p.Subcommand()
	args.Query = p.Positional(1)
	for _, name := range []string{"repo", "search", "limit", "format", "output"} {
		if v := p.Flag(name); v != "" {
			args.Options[name] = v
		}
	}
	if p.BoolFlag("confirm") {
		args.Options["confirm"] = "true"
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// Run executes a non-TUI command and returns its exit code. Errors have
// already been displayed when Run returns.
func Run(cmd Command, args Args) int {
	ApplyColorFlags(args)

	var err error
	switch cmd {
	case CmdBuild:
		err = HandleBuild(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdChat:
		err = HandleChat(args)
	case CmdStatus:
		err = HandleStatus(args)
	case CmdHistory:
		err = HandleHistory(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdVersion:
		HandleVersion(args)
	case CmdHelp:
		if args.Subcommand != "" {
			err = NewValidationErrorWithExample("command", args.Subcommand,
				"unknown command", "repochat help")
			break
		}
		PrintUsage()
	}

	if err != nil {
		DisplayError(err, args.JSON, cmd.String())
		return GetExitCode(err)
	}
	return ExitSuccess
}

// VersionData is the JSON payload of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Backend   string `json:"default_backend"`
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) {
	if args.JSON {
		NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Backend:   config.DefaultAPIBaseURL(),
		}).Print()
		return
	}
	PrintVersion()
}
