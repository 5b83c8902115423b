package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags, with
// debug.ReadBuildInfo as the fallback for plain `go install` builds.
var (
	version = ""
	commit  = ""
)

// buildVersion resolves the version and commit, preferring ldflags over
// what the module system embedded.
func buildVersion() (string, string) {
	v, c := version, commit
	info, ok := debug.ReadBuildInfo()
	if !ok {
		if v == "" {
			v = "(devel)"
		}
		return v, c
	}
	if v == "" && info.Main.Version != "" {
		v = info.Main.Version
	}
	if v == "" {
		v = "(devel)"
	}
	if c == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				c = s.Value
				if len(c) > 7 {
					c = c[:7]
				}
			}
		}
	}
	return v, c
}

// rootVersion is the version string cobra prints for --version.
func rootVersion() string {
	v, _ := buildVersion()
	return v
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version and commit hash of credshield.`,
		Run: func(cmd *cobra.Command, _ []string) {
			v, c := buildVersion()
			if c == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "credshield %s\n", v)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credshield %s (%s)\n", v, c)
		},
	}
}
