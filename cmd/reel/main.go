package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/config"
	"github.com/pders01/reel/internal/debuglog"
	"github.com/pders01/reel/internal/search"
	"github.com/pders01/reel/internal/storage"
	"github.com/pders01/reel/internal/tui"
	"github.com/pders01/reel/internal/validation"
	"github.com/pders01/reel/internal/watchlist"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	logLevel   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:           "reel",
	Short:         "Browse a movie catalog from the terminal",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reel %s\n", Version)
		fmt.Println("Movie catalog browser")
		fmt.Println("github.com/pders01/reel")
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to configuration file")
	pf.StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")

	rootCmd.AddCommand(versionCmd, configCmd, watchlistCmd, browseCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is everything a command needs once config is loaded. close releases it
// in reverse order of acquisition.
type env struct {
	cfg       *config.Config
	backend   storage.Backend
	watchlist *watchlist.Store
	client    *catalog.Client
	closers   []io.Closer
}

func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := resolvePaths(cfg); err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	backend, err := storage.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	e := &env{cfg: cfg, backend: backend, closers: []io.Closer{backend}}

	if bolt, ok := backend.(*storage.BoltStore); ok && cfg.Database.DetailsTTL > 0 {
		if n, err := bolt.PruneCache(time.Now().Add(-cfg.Database.DetailsTTL)); err != nil {
			debuglog.Warnf("pruning details cache: %v", err)
		} else if n > 0 {
			debuglog.Debugf("pruned %d cached details", n)
		}
	}

	e.watchlist = watchlist.Load(backend)
	cache := storage.NewCache(backend, cfg.Database.DetailsTTL)
	e.client = catalog.NewClient(cfg.Catalog, catalog.WithCache(cache))
	return e, nil
}

// resolvePaths validates the files reel writes to, restricted to the home and
// temp directories.
func resolvePaths(cfg *config.Config) error {
	paths := validation.NewSecurePathHandler()

	db, err := paths.DBPath(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	cfg.Database.Path = db

	if idx := cfg.Database.SearchIndex; idx != "" && idx != ":memory:" {
		if cfg.Database.SearchIndex, err = paths.IndexPath(idx); err != nil {
			return fmt.Errorf("invalid search index path: %w", err)
		}
	}

	if debuglog.ParseLogLevel(cfg.Log.Level) != debuglog.LevelOff {
		if cfg.Log.Path, err = paths.LogPath(cfg.Log.Path); err != nil {
			return fmt.Errorf("invalid log path: %w", err)
		}
	}
	return nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			debuglog.Warnf("closing: %v", err)
		}
	}
	debuglog.Close()
}

// searcher opens the persistent watchlist index, falling back to the
// in-memory engine the TUI builds when the index cannot be opened.
func (e *env) searcher() search.Searcher {
	s, err := search.NewBleveEngine(e.watchlist, e.cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("search index unavailable, using in-memory search: %v", err)
		return nil
	}
	if c, ok := s.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
	if st, ok := s.(search.DebugStatser); ok {
		if n, err := st.DocCount(); err == nil {
			debuglog.Debugf("search index holds %d documents", n)
		}
	}
	return s
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !quiet {
		tui.ShowBanner(Version)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	app := tui.NewApp(e.cfg, e.client, e.watchlist, e.searcher())
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
