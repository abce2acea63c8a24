package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func Title(msg string) string {
	return titleStyle.Render(msg)
}

func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

func Subtle(msg string) string {
	return subtleStyle.Render(msg)
}

func Error(msg string) string {
	return errorStyle.Render("✗ " + msg)
}

func PrintSuccess(msg string) {
	fmt.Println(Success(msg))
}

func PrintError(msg string) {
	fmt.Println(Error(msg))
}

// Confirm asks a yes/no question in the terminal. The default answer is no.
func Confirm(title, description string) (bool, error) {
	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}
	return confirmed, nil
}
