package main

import (
	"log/slog"

	"github.com/aluiziolira/go-bookfinder/web"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON search API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			slog.Warn("price history unavailable", slog.Any("error", err))
			store = nil
		} else {
			defer store.Close()
		}

		addr := serveFlags.addr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		engine := newEngine(store)
		server := web.NewServer(engine, store)
		return server.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
