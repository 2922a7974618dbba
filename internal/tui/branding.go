package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/reel/internal/config"
)

const AppName = "reel"

// LogoLines is the block-letter wordmark shared by the banner and the
// empty-state screens.
var LogoLines = []string{
	"█▀▀▄ █▀▀▀ █▀▀▀ █   ",
	"█▄▄▀ █▀▀  █▀▀  █   ",
	"█  █ █▄▄▄ █▄▄▄ █▄▄▄",
}

const CompactLogo = `reel ▶`

// BannerColors cycle down the banner lines.
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#E50914"),
	lipgloss.Color("#F5C518"),
	lipgloss.Color("#4ECDC4"),
}

// Palette. ApplyTheme overrides these from [ui.colors].
var (
	PrimaryColor   = lipgloss.Color("#E50914") // marquee red
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#F5C518") // ticket gold

	BackgroundColor = lipgloss.Color("#141414")
	SurfaceColor    = lipgloss.Color("#1F1F1F")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	ErrorColor   = lipgloss.Color("#F87171")
	SuccessColor = lipgloss.Color("#46D369")
)

// Styles are rebuilt by ApplyTheme, so they are vars derived from the palette.
var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	TabStyle           lipgloss.Style
	ActiveTabStyle     lipgloss.Style
	HeroTitleStyle     lipgloss.Style
	MatchStyle         lipgloss.Style
	SavedMarkStyle     lipgloss.Style
	HelpStyle          lipgloss.Style
	SeparatorStyle     lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
	EmptyStyle         = lipgloss.NewStyle()
)

func init() {
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)

	TabStyle = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 2)

	ActiveTabStyle = lipgloss.NewStyle().
		Foreground(BackgroundColor).
		Background(PrimaryColor).
		Bold(true).
		Padding(0, 2)

	HeroTitleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true)

	MatchStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)

	SavedMarkStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)

	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)

	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(AccentColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
}

// ApplyTheme replaces palette entries that are set in colors and rebuilds the
// styles.
func ApplyTheme(colors config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, colors.Primary)
	set(&SecondaryColor, colors.Secondary)
	set(&AccentColor, colors.Accent)
	set(&BackgroundColor, colors.Background)
	set(&SurfaceColor, colors.Surface)
	set(&TextColor, colors.Text)
	set(&MutedColor, colors.Muted)
	set(&ErrorColor, colors.Error)
	set(&SuccessColor, colors.Success)
	buildStyles()
}

// ContentWrapper returns a style for wrapping content with width and height constraints
func ContentWrapper(width, height int) lipgloss.Style {
	return EmptyStyle.Width(width).Height(height).MaxHeight(height)
}

func GetWelcomeMessage() string {
	return GetCompactBanner("Set catalog.api_key or TMDB_API_KEY to start browsing")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the startup banner for version.
func Banner(version string) string {
	lines := make([]string, len(LogoLines), len(LogoLines)+2)
	copy(lines, LogoLines)

	tagline := "    Movie Catalog Browser"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline = fmt.Sprintf("%s %s", tagline, version)
	}
	lines = append(lines, "", tagline)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1)

	banner := frame.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))
	reelStrip := lipgloss.NewStyle().Foreground(AccentColor).Render("▣ ▢ ▣ ▢ ▣")

	center := lipgloss.NewStyle().Width(70).Align(lipgloss.Center)
	return lipgloss.JoinVertical(lipgloss.Left,
		center.Render(banner),
		center.MarginBottom(1).Render(reelStrip),
	)
}

func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
