// File: cmd/server/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The CLI surface (§6): one cobra.Command per verb, -d/-g as flags on the
// verbs that use them, matching the nabbar-golib cobra-wrapper idiom (root
// command with subcommands, no global flag soup).

package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "webcore",
		Short: "webcore runs a multi-process network server framework",
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the listener configuration YAML file")

	root.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newReloadCmd(),
		newStatusCmd(),
		newConnectionsCmd(),
	)
	return root
}
