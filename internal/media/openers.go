package media

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// PlayerDefinition defines how a video player is invoked on a URL.
type PlayerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type PlatformConfig struct {
	DefaultOpener string   `toml:"default_opener"`
	Args          []string `toml:"args,omitempty"`
}

type VideoConfig struct {
	URLPatterns []string `toml:"url_patterns"`
}

// OpenersConfig is the layout of openers.toml.
type OpenersConfig struct {
	Video     VideoConfig                 `toml:"video"`
	Platforms map[string]PlatformConfig   `toml:"platforms"`
	Players   map[string]PlayerDefinition `toml:"players"`
}

// Registry resolves how to open a link on the current platform.
type Registry struct {
	goos   string
	config OpenersConfig
}

// NewRegistry parses the embedded table, then merges the user's file when
// one exists. A broken user file is reported but the built-ins still load.
func NewRegistry() (*Registry, error) {
	r := &Registry{goos: runtime.GOOS}
	if err := toml.Unmarshal(openersTOML, &r.config); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return r, nil
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "reel", "openers.toml"))
	if err != nil {
		return r, nil
	}
	if err := r.Merge(data); err != nil {
		return r, fmt.Errorf("parsing user openers.toml: %w", err)
	}
	return r, nil
}

// Merge overlays another openers table; its entries win.
func (r *Registry) Merge(data []byte) error {
	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return err
	}
	if len(user.Video.URLPatterns) > 0 {
		r.config.Video.URLPatterns = user.Video.URLPatterns
	}
	if r.config.Platforms == nil {
		r.config.Platforms = make(map[string]PlatformConfig)
	}
	for name, p := range user.Platforms {
		r.config.Platforms[name] = p
	}
	if r.config.Players == nil {
		r.config.Players = make(map[string]PlayerDefinition)
	}
	for name, p := range user.Players {
		r.config.Players[name] = p
	}
	return nil
}

// IsVideo reports whether link points at a streaming video page.
func (r *Registry) IsVideo(link string) bool {
	lower := strings.ToLower(link)
	for _, p := range r.config.Video.URLPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DefaultOpener is the platform's generic "open this URL" command and its
// leading arguments.
func (r *Registry) DefaultOpener() (string, []string) {
	if p, ok := r.config.Platforms[r.goos]; ok && p.DefaultOpener != "" {
		return p.DefaultOpener, p.Args
	}
	if p, ok := r.config.Platforms["fallback"]; ok && p.DefaultOpener != "" {
		return p.DefaultOpener, p.Args
	}
	return "open", nil
}

// PlayerArgs returns the arguments for player on this platform, or an error
// when the player is unknown or unsupported here.
func (r *Registry) PlayerArgs(player string) ([]string, error) {
	def, ok := r.config.Players[player]
	if !ok {
		return nil, fmt.Errorf("unknown player %q", player)
	}
	if !slices.Contains(def.Platforms, r.goos) {
		return nil, fmt.Errorf("%s not supported on %s", player, r.goos)
	}

	switch r.goos {
	case "darwin":
		if len(def.ArgsDarwin) > 0 {
			return def.ArgsDarwin, nil
		}
	case "linux":
		if len(def.ArgsLinux) > 0 {
			return def.ArgsLinux, nil
		}
	case "windows":
		if len(def.ArgsWindows) > 0 {
			return def.ArgsWindows, nil
		}
	}
	return def.Args, nil
}

// Players lists the known player names in sorted order.
func (r *Registry) Players() []string {
	names := make([]string, 0, len(r.config.Players))
	for name := range r.config.Players {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
