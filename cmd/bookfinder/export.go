package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aluiziolira/go-bookfinder/export"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	output string
	format string
}

var exportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Run a search and write the results to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(cmd, args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore()
		if err != nil {
			slog.Warn("price history unavailable", slog.Any("error", err))
			store = nil
		} else {
			defer store.Close()
		}

		engine := newEngine(store)
		result, err := engine.Search(ctx, req)
		if err != nil {
			return err
		}
		if len(result.Listings) == 0 {
			return fmt.Errorf("no listings to export")
		}

		writer, err := export.New(exportFlags.format, exportFlags.output)
		if err != nil {
			return err
		}
		if err := writer.Write(result.Listings); err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
		if err := writer.Validate(); err != nil {
			return err
		}

		fmt.Printf("Wrote %d listings to %s\n", len(result.Listings), exportFlags.output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "listings.csv", "Output file path")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "csv", "Output format: csv, json, or dual")
	exportCmd.Flags().StringVar(&searchFlags.isbn, "isbn", "", "Search by ISBN-10 or ISBN-13")
	exportCmd.Flags().StringSliceVar(&searchFlags.sources, "sources", nil, "Restrict to named sources (comma separated)")
	exportCmd.Flags().Float64Var(&searchFlags.minPrice, "min-price", 0, "Drop listings cheaper than this total")
	exportCmd.Flags().Float64Var(&searchFlags.maxPrice, "max-price", 0, "Drop listings dearer than this total")
	exportCmd.Flags().IntVar(&searchFlags.maxResults, "max-results", 0, "Maximum listings kept per source")
	exportCmd.Flags().BoolVar(&searchFlags.offline, "offline", false, "Answer from recorded price history only")
	exportCmd.Flags().BoolVar(&searchFlags.noSave, "no-save", false, "Skip recording prices to history")
	rootCmd.AddCommand(exportCmd)
}
