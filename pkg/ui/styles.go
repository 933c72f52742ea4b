package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"} // Green
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"} // Red
	ColorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"} // Magenta
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"} // Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"} // Gray
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"} // Yellow
	ColorAccent  = lipgloss.AdaptiveColor{Light: "4", Dark: "4"} // Blue

	StyleSuccess     = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError       = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePrimary     = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleInfo        = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted       = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning     = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleAccent      = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleTitle       = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	StyleBold        = lipgloss.NewStyle().Bold(true)
	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleTableBorder = lipgloss.NewStyle().Foreground(ColorMuted)

	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
	IconStash   = "📦"
	IconTrash   = "🗑"
)

func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

func FormatStash(msg string) string {
	return StylePrimary.Render(IconStash + " " + msg)
}

func FormatTrash(msg string) string {
	return StyleWarning.Render(IconTrash + " " + msg)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

func FormatBold(text string) string {
	return StyleBold.Render(text)
}

// RenderKeyValue renders an aligned key: value line
func RenderKeyValue(key, value string) string {
	return StyleAccent.Render(key+":") + " " + value
}
