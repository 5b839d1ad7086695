package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted          = ac("240", "243")
	colorChromeMutedFg  = ac("240", "245")
	colorSelectedBg     = ac("#e9e9e9", "#262626")
	colorSelectedFg     = ac("235", "255")
	colorSelectedBorder = ac("232", "255")
	colorCellBorder     = ac("250", "238")
	colorSurfaceFg      = ac("235", "252")
	colorControlBg      = ac("252", "235")
	colorAccent         = ac("27", "62")
	colorAccentFg       = ac("255", "235")
	colorToday          = ac("#b45309", "#f59e0b")
	colorErrorFg        = ac("160", "203")
	colorOKFg           = ac("28", "114")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleToday() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorToday)
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
}

func styleDropMarker() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorAccent).Foreground(colorAccentFg)
}

func styleStatus(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Foreground(colorErrorFg)
	}
	return lipgloss.NewStyle().Foreground(colorOKFg)
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts TERM/COLORTERM
// over the detector when they claim more colors.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && (profile == termenv.Ascii || profile == termenv.ANSI) {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection.
//
// Priority:
// 1) PLANNER_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg")
func applyThemePreference() {
	switch themeFromEnv(os.Getenv("PLANNER_TUI_THEME"), os.Getenv("COLORFGBG")) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}

// themeFromEnv returns "light", "dark" or "" when undecided.
func themeFromEnv(theme, colorfgbg string) string {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if v := strings.TrimSpace(colorfgbg); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg < 7 {
				return "dark"
			}
			return "light"
		}
	}
	return ""
}
