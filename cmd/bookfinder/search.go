package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/aluiziolira/go-bookfinder/wishlist"
	"github.com/spf13/cobra"
)

var searchFlags struct {
	isbn       string
	sources    []string
	minPrice   float64
	maxPrice   float64
	maxResults int
	offline    bool
	noSave     bool
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search all configured sources for a book",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.isbn, "isbn", "", "Search by ISBN-10 or ISBN-13")
	searchCmd.Flags().StringSliceVar(&searchFlags.sources, "sources", nil, "Restrict to named sources (comma separated)")
	searchCmd.Flags().Float64Var(&searchFlags.minPrice, "min-price", 0, "Drop listings cheaper than this total")
	searchCmd.Flags().Float64Var(&searchFlags.maxPrice, "max-price", 0, "Drop listings dearer than this total")
	searchCmd.Flags().IntVar(&searchFlags.maxResults, "max-results", 0, "Maximum listings kept per source")
	searchCmd.Flags().BoolVar(&searchFlags.offline, "offline", false, "Answer from recorded price history only")
	searchCmd.Flags().BoolVar(&searchFlags.noSave, "no-save", false, "Skip recording prices to history")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	printListings(result.Listings)
	printStatuses(result)
	if store != nil {
		printDeals(ctx, store, result)
	}
	return nil
}

func buildRequest(cmd *cobra.Command, args []string) (models.SearchRequest, error) {
	req := models.SearchRequest{
		ISBN:    models.NormalizeISBN(searchFlags.isbn),
		Sources: searchFlags.sources,
		Offline: searchFlags.offline,
		NoSave:  searchFlags.noSave,
	}
	if len(args) > 0 {
		req.Query = strings.TrimSpace(args[0])
	}
	if req.Query == "" && req.ISBN == "" {
		return req, fmt.Errorf("provide a query or --isbn")
	}
	if searchFlags.maxResults > 0 {
		req.MaxPerSource = searchFlags.maxResults
	}
	if cmd.Flags().Changed("min-price") {
		v := searchFlags.minPrice
		req.MinPrice = &v
	}
	if cmd.Flags().Changed("max-price") {
		v := searchFlags.maxPrice
		req.MaxPrice = &v
	}
	return req, nil
}

func printListings(listings []*models.Listing) {
	if len(listings) == 0 {
		fmt.Println("No listings found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSOURCE\tTITLE\tCONDITION\tPRICE\tSHIPPING\tTOTAL")
	for i, l := range listings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f %s\n",
			i+1, l.Source, truncate(l.Title, 60), l.Condition, l.Price, l.Shipping, l.TotalPrice(), l.Currency)
	}
	w.Flush()

	for i, l := range listings {
		if l.URL != "" {
			fmt.Printf("  [%d] %s\n", i+1, l.URL)
		}
	}
}

func printStatuses(result *models.SearchResult) {
	names := make([]string, 0, len(result.Statuses))
	for name := range result.Statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nSources (%s):\n", result.Elapsed.Round(time.Millisecond))
	for _, name := range names {
		status := result.Statuses[name]
		line := fmt.Sprintf("  %-16s %s", name, status.State)
		if status.State == models.SourceOK {
			line += fmt.Sprintf(" (%d listings)", status.Count)
		} else if status.Reason != "" {
			line += " (" + status.Reason + ")"
		}
		fmt.Println(line)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}

// printDeals flags listings at or under a wishlist entry's price cap.
func printDeals(ctx context.Context, store *history.Store, result *models.SearchResult) {
	entries, err := store.WishlistList(ctx)
	if err != nil || len(entries) == 0 {
		return
	}
	alerts := wishlist.Match(result, entries)
	if len(alerts) == 0 {
		return
	}

	fmt.Println("\nDEAL! Wishlist price targets met:")
	for _, alert := range alerts {
		fmt.Printf("  %q at %.2f %s on %s (target %.2f)\n",
			alert.Listing.Title, alert.Listing.TotalPrice(), alert.Listing.Currency,
			alert.Listing.Source, alert.Entry.MaxPrice)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
