package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reel/internal/config"
)

func testLauncher(t *testing.T, goos string, cfg config.MediaConfig, installed ...string) *Launcher {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	l := NewLauncher(cfg)
	l.registry.goos = goos
	l.lookPath = func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	return l
}

func TestLauncher_Command(t *testing.T) {
	const trailer = "https://www.youtube.com/watch?v=vKQi3bBA1y8"

	tests := []struct {
		name      string
		goos      string
		cfg       config.MediaConfig
		installed []string
		link      string
		wantName  string
		wantArgs  []string
	}{
		{
			name:     "linux default opener",
			goos:     "linux",
			link:     trailer,
			wantName: "xdg-open",
			wantArgs: []string{trailer},
		},
		{
			name:     "darwin default opener",
			goos:     "darwin",
			link:     trailer,
			wantName: "open",
			wantArgs: []string{trailer},
		},
		{
			name:     "windows default opener",
			goos:     "windows",
			link:     trailer,
			wantName: "rundll32",
			wantArgs: []string{"url.dll,FileProtocolHandler", trailer},
		},
		{
			name:     "configured opener wins",
			goos:     "linux",
			cfg:      config.MediaConfig{DefaultOpener: "firefox"},
			link:     trailer,
			wantName: "firefox",
			wantArgs: []string{trailer},
		},
		{
			name:     "start builtin",
			goos:     "windows",
			cfg:      config.MediaConfig{DefaultOpener: "start"},
			link:     trailer,
			wantName: "cmd",
			wantArgs: []string{"/c", "start", "", trailer},
		},
		{
			name:      "installed player for video",
			goos:      "linux",
			cfg:       config.MediaConfig{Player: "mpv"},
			installed: []string{"mpv"},
			link:      trailer,
			wantName:  "mpv",
			wantArgs:  []string{"--force-window=immediate", "--really-quiet", trailer},
		},
		{
			name:     "player missing falls back",
			goos:     "linux",
			cfg:      config.MediaConfig{Player: "mpv"},
			link:     trailer,
			wantName: "xdg-open",
			wantArgs: []string{trailer},
		},
		{
			name:      "player unsupported on platform",
			goos:      "linux",
			cfg:       config.MediaConfig{Player: "iina"},
			installed: []string{"iina"},
			link:      trailer,
			wantName:  "xdg-open",
			wantArgs:  []string{trailer},
		},
		{
			name:      "player ignored for non-video",
			goos:      "linux",
			cfg:       config.MediaConfig{Player: "mpv"},
			installed: []string{"mpv"},
			link:      "https://www.themoviedb.org/movie/603",
			wantName:  "xdg-open",
			wantArgs:  []string{"https://www.themoviedb.org/movie/603"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLauncher(t, tt.goos, tt.cfg, tt.installed...)
			name, args, err := l.Command(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLauncher_RejectsUnsafeLinks(t *testing.T) {
	l := testLauncher(t, "linux", config.MediaConfig{})

	for _, link := range []string{
		"http://www.youtube.com/watch?v=x",
		"https://localhost/trailer",
		"https://192.168.1.10/x",
		"https://example.com/a b",
		"",
	} {
		_, _, err := l.Command(link)
		assert.Error(t, err, link)
	}
}

func TestLauncher_Open(t *testing.T) {
	l := testLauncher(t, "linux", config.MediaConfig{})

	var gotName string
	var gotArgs []string
	l.start = func(name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	require.NoError(t, l.Open("https://youtu.be/abc"))
	assert.Equal(t, "xdg-open", gotName)
	assert.Equal(t, []string{"https://youtu.be/abc"}, gotArgs)

	l.start = func(string, ...string) error { return errors.New("exec: not found") }
	err := l.Open("https://youtu.be/abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start xdg-open")
}
