package cmd

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(26)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func printTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

func printField(label string, value interface{}) {
	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value))))
}

func printOK(format string, args ...interface{}) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

func printWarn(format string, args ...interface{}) {
	fmt.Println(warnStyle.Render("! " + fmt.Sprintf(format, args...)))
}

func printFail(format string, args ...interface{}) {
	fmt.Println(errStyle.Render("✗ " + fmt.Sprintf(format, args...)))
}

// printCounts prints a count map in key order.
func printCounts(indent string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printField(indent+k, counts[k])
	}
}
