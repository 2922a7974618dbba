package media

import (
	"fmt"
	"os/exec"

	"github.com/pders01/reel/internal/config"
	"github.com/pders01/reel/internal/debuglog"
	"github.com/pders01/reel/internal/validation"
)

// Launcher opens trailer and catalog links outside the terminal.
type Launcher struct {
	registry  *Registry
	opener    string
	player    string
	validator *validation.CatalogURLValidator

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

func NewLauncher(cfg config.MediaConfig) *Launcher {
	registry, err := NewRegistry()
	if err != nil {
		debuglog.Warnf("loading openers: %v", err)
		if registry == nil {
			registry = &Registry{goos: "fallback"}
		}
	}

	return &Launcher{
		registry:  registry,
		opener:    cfg.DefaultOpener,
		player:    cfg.Player,
		validator: validation.NewCatalogURLValidator(),
		lookPath:  exec.LookPath,
		start:     startDetached,
	}
}

// Command resolves the program and arguments used to open link. Video links
// go to the configured player when it is installed; everything else, and
// video without a usable player, goes to the platform opener.
func (l *Launcher) Command(link string) (string, []string, error) {
	normalized, err := l.validator.ValidateAndNormalize(link)
	if err != nil {
		return "", nil, fmt.Errorf("refusing to open %q: %w", link, err)
	}

	if l.player != "" && l.registry.IsVideo(normalized) {
		if args, err := l.registry.PlayerArgs(l.player); err == nil {
			if _, err := l.lookPath(l.player); err == nil {
				return l.player, append(append([]string(nil), args...), normalized), nil
			}
		}
	}

	name, args := l.registry.DefaultOpener()
	if l.opener != "" {
		name, args = l.opener, nil
	}
	if name == "start" {
		// start is a cmd.exe builtin; the empty string is the window title.
		return "cmd", []string{"/c", "start", "", normalized}, nil
	}
	return name, append(append([]string(nil), args...), normalized), nil
}

// Open starts the resolved command without waiting for it.
func (l *Launcher) Open(link string) error {
	name, args, err := l.Command(link)
	if err != nil {
		return err
	}
	debuglog.Debugf("opening %s with %s", link, name)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
