package tui

import (
	"os"
	"strings"

	"tasklist-cli/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers. Every color is adaptive; the stored theme picks the variant by
// forcing lipgloss's background detection.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      = ac("240", "243")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorInputBg    = ac("254", "234")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorAccent     = ac("27", "62")
	colorAccentFg   = ac("255", "235")
	colorDueSoon    = ac("166", "214")
	colorOverdue    = ac("160", "203")
	colorHigh       = ac("160", "203")
	colorLow        = ac("244", "242")
	colorError      = ac("196", "160")
)

// applyTheme points every adaptive color at the light or dark variant.
func applyTheme(t store.Theme) {
	lipgloss.SetHasDarkBackground(t != store.ThemeLight)
}

func styleMuted() lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorMuted)
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleTab(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return st.Bold(true).Foreground(colorAccentFg).Background(colorAccent)
	}
	return st.Foreground(colorSurfaceFg).Background(colorControlBg)
}

func styleSelectedRow() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg)
}

func styleDone() lipgloss.Style {
	return styleMuted().Strikethrough(true)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorError)
}

// applyColorProfilePreference honors NO_COLOR and otherwise follows the terminal.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}
