package util

import (
	"strings"

	"github.com/fatih/color"
)

var green = color.New(color.FgGreen).SprintFunc()
var whiteBold = color.New(color.FgWhite, color.Bold).SprintFunc()
var faint = color.New(color.Faint).SprintFunc()

// GenerateHelpSection renders a titled block for command long help.
func GenerateHelpSection(title string, body string) string {
	return green(title) + "\n\n" + whiteBold(body)
}

// GenerateExamples renders example invocations, one per line.
func GenerateExamples(examples ...string) string {
	lines := make([]string, 0, len(examples))
	for _, e := range examples {
		lines = append(lines, "  "+faint("$")+" "+e)
	}
	return strings.Join(lines, "\n")
}
