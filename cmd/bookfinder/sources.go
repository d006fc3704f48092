package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and probe their reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine(nil)
		infos := engine.Sources(cmd.Context())

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tBASE URL\tBROWSER\tSTATUS")
		for _, info := range infos {
			browser := "no"
			if info.Descriptor.RequiresBrowser {
				browser = "yes"
			}
			status := "ok"
			if !info.Reachable {
				status = "unreachable"
				if info.ProbeError != "" {
					status += " (" + info.ProbeError + ")"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Descriptor.Name, info.Descriptor.BaseURL, browser, status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
