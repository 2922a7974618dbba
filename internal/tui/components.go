package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/reel/internal/catalog"
)

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderTabs draws the browse tab strip with active highlighted.
func renderTabs(active int) string {
	tabs := make([]string, len(browseTabs))
	for i, src := range browseTabs {
		style := TabStyle
		if i == active {
			style = ActiveTabStyle
		}
		tabs[i] = style.Render(src.Label())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderHero draws the featured title above the home listing.
func renderHero(item catalog.Item, saved bool, width int) string {
	if width < 20 {
		width = 20
	}
	title := item.Title
	if saved {
		title = SavedMarkStyle.Render("★ ") + title
	}
	meta := MatchStyle.Render(item.Match())
	if year := item.Year(); year != "" {
		meta += renderMuted(" • " + year)
	}
	overview := truncateEnd(strings.TrimSpace(item.Overview), (width-6)*2)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1).
		Width(width - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			HeroTitleStyle.Render(truncateEnd(title, width-6)),
			meta,
			lipgloss.NewStyle().Foreground(TextColor).Width(width-6).Render(overview),
		))
}

// renderInputFrame draws a rounded bordered container around a rendered input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// renderStatus styles a status line by severity.
func renderStatus(text string, kind StatusKind) string {
	switch kind {
	case StatusSuccess:
		return StatusSuccessStyle.Render(text)
	case StatusWarn:
		return StatusWarnStyle.Render(text)
	case StatusError:
		return StatusErrorStyle.Render("✗ " + text)
	default:
		return StatusInfoStyle.Render(text)
	}
}
