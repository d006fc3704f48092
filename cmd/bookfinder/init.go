package main

import (
	"fmt"

	"github.com/aluiziolira/go-bookfinder/config"
	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			path = config.DefaultPath()
		}
		written, err := config.WriteDefault(path, initFlags.force)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", written)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
