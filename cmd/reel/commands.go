package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/config"
	"github.com/pders01/reel/internal/feed"
)

var (
	configOutPath string
	pages         int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate default config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configOutPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Show or edit the watchlist",
	RunE:  listWatchlist,
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a title to the watchlist by catalog id",
	Args:  cobra.ExactArgs(1),
	RunE:  addToWatchlist,
}

var watchlistRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a title from the watchlist",
	Args:    cobra.ExactArgs(1),
	RunE:    removeFromWatchlist,
}

var browseCmd = &cobra.Command{
	Use:   "browse [source]",
	Short: "Print a listing: popular, upcoming, top_rated, similar/<id> or search/<query>",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := catalog.Popular
		if len(args) == 1 {
			parsed, err := catalog.ParseSource(args[0])
			if err != nil {
				return err
			}
			src = parsed
		}
		return printListing(cmd, src)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog and print matching titles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("empty query")
		}
		return printListing(cmd, catalog.SearchFor(query))
	},
}

func init() {
	configGenCmd.Flags().StringVar(&configOutPath, "path", "", "Where to write the file (default ~/.config/reel/config.toml)")
	configCmd.AddCommand(configGenCmd)

	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd)

	for _, c := range []*cobra.Command{browseCmd, searchCmd} {
		c.Flags().IntVarP(&pages, "pages", "p", 1, "Number of pages to fetch")
	}
}

// commandContext tolerates commands invoked outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func listWatchlist(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	out := cmd.OutOrStdout()
	if e.watchlist.Len() == 0 {
		fmt.Fprintln(out, "Your watchlist is empty")
		return nil
	}
	for item := range e.watchlist.List() {
		printItem(out, item)
	}
	return nil
}

func addToWatchlist(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if e.watchlist.Contains(id) {
		fmt.Fprintf(cmd.OutOrStdout(), "%d is already on the watchlist\n", id)
		return nil
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), e.cfg.Feed.FetchTimeout)
	defer cancel()
	d, err := e.client.Details(ctx, id)
	if err != nil {
		return fmt.Errorf("loading details: %w", err)
	}

	e.watchlist.Add(d.Item)
	if err := e.watchlist.LastPersistErr(); err != nil {
		return fmt.Errorf("saving watchlist: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added '%s' to watchlist\n", d.Title)
	return nil
}

func removeFromWatchlist(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	item, ok := e.watchlist.Get(id)
	if !ok {
		return fmt.Errorf("%d is not on the watchlist", id)
	}
	e.watchlist.Remove(id)
	if err := e.watchlist.LastPersistErr(); err != nil {
		return fmt.Errorf("saving watchlist: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s' from watchlist\n", item.Title)
	return nil
}

// printListing walks src through a feed controller, the same way the TUI
// pages a listing, and prints every accumulated title.
func printListing(cmd *cobra.Command, src catalog.Source) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	ctrl := feed.NewController(e.client,
		feed.WithFetchTimeout(e.cfg.Feed.FetchTimeout),
		feed.WithDedupe(e.cfg.Feed.Dedupe),
	)
	return collect(ctx, cmd.OutOrStdout(), ctrl, src, max(pages, 1))
}

func collect(ctx context.Context, out io.Writer, ctrl *feed.Controller, src catalog.Source, limit int) error {
	if err := ctrl.Start(ctx, src); err != nil {
		return err
	}
	for n := 1; n < limit; n++ {
		err := ctrl.Fetch(ctx)
		if errors.Is(err, feed.ErrExhausted) {
			break
		}
		if err != nil {
			return err
		}
	}

	snap := ctrl.State()
	fmt.Fprintf(out, "%s • %d titles • page %d/%d\n", src.Label(), len(snap.Items), snap.Cursor-1, snap.TotalPages)
	for _, item := range snap.Items {
		printItem(out, item)
	}
	return nil
}

func printItem(out io.Writer, item catalog.Item) {
	year := item.Year()
	if year == "" {
		year = "----"
	}
	fmt.Fprintf(out, "%8d  %s  %-9s %s\n", item.ID, year, item.Match(), item.Title)
}
