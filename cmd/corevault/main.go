// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "corevault",
	Short: "corevault CLI - run the auth/secret-sharing core and manage its keys",
	Long: `corevault provides the operator tooling for the zero-knowledge
authentication and ephemeral-secret-sharing service:

- keygen: generate the process secrets and long-term server keys
- serve: run the HTTP API against a memory or postgres backend`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
