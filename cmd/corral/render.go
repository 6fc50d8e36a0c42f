package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var titleCaser = cases.Title(language.English)

// displayLabel turns an identifier like "milk_records" into "Milk Records"
// for table and alert output.
func displayLabel(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

func colorFor(name string) string {
	switch name {
	case "red":
		return ansiRed
	case "yellow":
		return ansiYellow
	case "green":
		return ansiGreen
	case "blue":
		return ansiBlue
	default:
		return ""
	}
}

func colorize(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderStatusLine(label, value string, color string, enabled bool) string {
	return fmt.Sprintf("  %-22s %s", label+":", colorize(value, color, enabled))
}

func formatAge(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh%dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dd%dh", hours/24, hours%24)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
