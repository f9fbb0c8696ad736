// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/repochat/internal/config"
)

// HandleConfig handles "repochat config [show|get|set|path|keys]".
func HandleConfig(args Args) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath(args)
	case "keys":
		return configKeys(args)
	default:
		return NewValidationErrorWithExample("config subcommand", args.Subcommand,
			"unknown subcommand", "repochat config [show|get|set|path|keys]")
	}
}

// configShow prints the effective configuration, overrides included.
func configShow(args Args) error {
	cfg := EffectiveConfig(args)
	if args.JSON {
		return NewJSONResponse("config show", cfg).Print()
	}
	fmt.Fprint(out, cfg.String())
	return nil
}

func configGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "repochat config get query.k")
	}
	value, err := EffectiveConfig(args).Get(args.ConfigKey)
	if err != nil {
		return NewValidationErrorWithExample("key", args.ConfigKey, err.Error(), "repochat config keys")
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]interface{}{
			"key":   args.ConfigKey,
			"value": value,
		}).Print()
	}
	fmt.Fprintln(out, value)
	return nil
}

// configSet edits the config file on disk. Only the file's own contents are
// rewritten; .env and environment overrides are never persisted.
func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "repochat config set query.k 8")
	}

	path, exists := config.ActivePath()
	isJSON := strings.HasSuffix(path, ".json")

	cfg := config.Default()
	if exists {
		var err error
		if isJSON {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return NewCommandError("config", "set", "could not read "+path, err)
		}
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return NewValidationErrorWithExample("key", args.ConfigKey, err.Error(), "repochat config keys")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return NewCommandError("config", "set", "could not create config directory", err)
	}
	var err error
	switch {
	case !exists:
		err = config.Save(cfg)
	case isJSON:
		err = config.SaveJSON(cfg, path)
	default:
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return NewCommandError("config", "set", "could not write "+path, err)
	}
	// Later reads of config.Global in this process see the new file.
	if err := config.ReloadGlobal(); err != nil {
		fmt.Fprintf(errOut, "%s reload failed: %v\n", WarningStyle.Render("[!]"), err)
	}

	value, _ := cfg.Get(args.ConfigKey)
	if args.JSON {
		return NewJSONResponse("config set", map[string]interface{}{
			"key":   args.ConfigKey,
			"value": value,
			"path":  path,
		}).Print()
	}
	fmt.Fprintf(errOut, "%s %s = %v (%s)\n", SuccessStyle.Render("[OK]"), args.ConfigKey, value, path)
	return nil
}

func configPath(args Args) error {
	path, exists := config.ActivePath()
	if args.JSON {
		return NewJSONResponse("config path", ConfigPathData{Path: path, Exists: exists}).Print()
	}
	fmt.Fprintln(out, path)
	if !exists && !args.Quiet {
		fmt.Fprintln(errOut, DimStyle.Render("(not created yet; defaults are in use)"))
	}
	return nil
}

func configKeys(args Args) error {
	keys := config.GetAllKeys()
	if args.JSON {
		return NewJSONResponse("config keys", keys).Print()
	}
	for _, key := range keys {
		fmt.Fprintln(out, key)
	}
	return nil
}
