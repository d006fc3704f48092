package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/spf13/cobra"
)

var wishlistAddFlags struct {
	author   string
	isbn     string
	maxPrice float64
}

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Manage wanted books and their target prices",
}

var wishlistAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a book to the wishlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if wishlistAddFlags.maxPrice <= 0 {
			return fmt.Errorf("--max-price must be positive")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entry := models.WishlistEntry{
			Title:    args[0],
			Author:   wishlistAddFlags.author,
			ISBN:     models.NormalizeISBN(wishlistAddFlags.isbn),
			MaxPrice: wishlistAddFlags.maxPrice,
		}
		id, err := store.WishlistAdd(cmd.Context(), entry)
		if err != nil {
			return err
		}
		fmt.Printf("Added %q (id %d, target %.2f)\n", entry.Title, id, entry.MaxPrice)
		return nil
	},
}

var wishlistRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a wishlist entry by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.WishlistRemove(cmd.Context(), id); err != nil {
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no wishlist entry with id %d", id)
			}
			return err
		}
		fmt.Printf("Removed entry %d\n", id)
		return nil
	},
}

var wishlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wishlist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.WishlistList(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Wishlist is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tTARGET")
		for _, entry := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\n",
				entry.ID, entry.Title, entry.Author, entry.ISBN, entry.MaxPrice)
		}
		return w.Flush()
	},
}

func init() {
	wishlistAddCmd.Flags().StringVar(&wishlistAddFlags.author, "author", "", "Author to match")
	wishlistAddCmd.Flags().StringVar(&wishlistAddFlags.isbn, "isbn", "", "ISBN to match exactly")
	wishlistAddCmd.Flags().Float64Var(&wishlistAddFlags.maxPrice, "max-price", 0, "Alert when total price is at or under this")
	wishlistCmd.AddCommand(wishlistAddCmd, wishlistRemoveCmd, wishlistListCmd)
	rootCmd.AddCommand(wishlistCmd)
}
