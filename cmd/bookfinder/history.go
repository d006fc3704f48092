package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	isbn  string
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Show recorded prices for a book",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := models.HistoryFilter{
			ISBN:  models.NormalizeISBN(historyFlags.isbn),
			Limit: historyFlags.limit,
		}
		if len(args) > 0 {
			filter.Title = args[0]
		}
		if filter.Title == "" && filter.ISBN == "" {
			return fmt.Errorf("provide a query or --isbn")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Query(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No recorded prices match.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tSOURCE\tTITLE\tCONDITION\tTOTAL")
		for _, record := range records {
			l := record.Listing
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f %s\n",
				l.FetchedAt.Format("2006-01-02 15:04"), l.Source, truncate(l.Title, 50),
				l.Condition, l.TotalPrice(), l.Currency)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		lowest, err := store.LowestPrice(cmd.Context(), filter)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				return nil
			}
			return err
		}
		fmt.Printf("\nLowest ever: %.2f %s on %s (%s)\n",
			lowest.Listing.TotalPrice(), lowest.Listing.Currency,
			lowest.Listing.Source, lowest.Listing.FetchedAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.isbn, "isbn", "", "Filter by ISBN")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 0, "Maximum records shown")
	rootCmd.AddCommand(historyCmd)
}
