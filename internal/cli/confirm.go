// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// confirmInput is where interactive confirmations are read from.
var confirmInput io.Reader = os.Stdin

// RequireConfirmation checks that the user confirmed a destructive action:
//  1. --confirm proceeds without prompting
//  2. --json without --confirm is an error (no prompts in JSON mode)
//  3. a non-terminal stdin without --confirm is an error
//  4. otherwise the user is asked [y/N]
func RequireConfirmation(confirmFlag bool, action string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if jsonMode {
		return false, NewValidationErrorWithExample("confirm", "",
			"confirmation required in JSON mode", "add --confirm")
	}
	if confirmInput == os.Stdin && !IsTTY() {
		return false, NewValidationErrorWithExample("confirm", "",
			"stdin is not a terminal", "add --confirm")
	}

	fmt.Fprintf(errOut, "Are you sure you want to %s? [y/N]: ", action)
	input, err := bufio.NewReader(confirmInput).ReadString('\n')
	if err != nil && input == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
