package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/proguard"
)

const tabWidth = 8

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	titleStyle   = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

// Diagnostic is a problem located in a rule file.
type Diagnostic struct {
	Severity Severity
	Title    string
	File     string
	Line     int
	// Column is 1-based. Zero underlines the whole line.
	Column  int
	Length  int
	Message string
	Note    string
}

// FromError turns the errors rule processing reports into diagnostics. It
// returns false for errors that carry no rule location.
func FromError(err error) (Diagnostic, bool) {
	var se *proguard.SyntaxError
	if errors.As(err, &se) {
		return Diagnostic{
			Severity: SeverityError,
			Title:    "syntax error",
			File:     se.File,
			Line:     se.Line,
			Column:   se.Col,
			Length:   len(se.Token),
			Message:  se.Msg,
		}, true
	}
	var ue *classgraph.UnresolvedReferenceError
	if errors.As(err, &ue) {
		file, line, ok := location(ue.From)
		if !ok {
			return Diagnostic{}, false
		}
		return Diagnostic{
			Severity: SeverityWarning,
			Title:    "unresolved class",
			File:     file,
			Line:     line,
			Message:  ue.Ref + " is not in the class container",
			Note:     "the rule still applies to every other class it names",
		}, true
	}
	return Diagnostic{}, false
}

// FromWarning converts a parser warning.
func FromWarning(w proguard.Warning) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Title:    "ignored directive",
		File:     w.File,
		Line:     w.Line,
		Message:  w.Msg,
	}
}

// location splits "file:line" or "line N".
func location(from string) (string, int, bool) {
	if rest, ok := strings.CutPrefix(from, "line "); ok {
		n, err := strconv.Atoi(rest)
		return "", n, err == nil
	}
	i := strings.LastIndexByte(from, ':')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(from[i+1:])
	return from[:i], n, err == nil
}

const diagnosticTemplate = `{{header .Severity .Title .MaxLineNumWidth .Filename .Line .Column}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .Line .Column .Length .SnippetLines .CommonIndent -}}
{{if .Note}}{{note .Note .Padding}}{{end}}`

var funcMap = template.FuncMap{
	"header":              header,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"note":                note,
}

var tmpl = template.Must(template.New("diagnostic").Funcs(funcMap).Parse(diagnosticTemplate))

type diagnosticData struct {
	Severity        Severity
	Title           string
	Filename        string
	Line            int
	Column          int
	Length          int
	MaxLineNumWidth int
	Padding         string
	Message         string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

// Format renders diagnostics with the rule lines they point at. src maps
// file names to their lines; diagnostics without a file use src[""].
func Format(diags []Diagnostic, src map[string][]string) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(build(d, src[d.File]))
		sb.WriteString("\n")
	}
	return sb.String()
}

func build(d Diagnostic, lines []string) string {
	width := calculateMaxLineNumWidth(d.Line)
	var indent string
	if d.Line >= 1 && d.Line <= len(lines) {
		indent = findCommonIndent(lines[d.Line-1 : d.Line])
	}
	name := d.File
	if name == "" {
		name = "<rules>"
	}
	data := diagnosticData{
		Severity:        d.Severity,
		Title:           d.Title,
		Filename:        name,
		Line:            d.Line,
		Column:          d.Column,
		Length:          d.Length,
		MaxLineNumWidth: width,
		Padding:         strings.Repeat(" ", width+1),
		Message:         d.Message,
		Note:            d.Note,
		SnippetLines:    lines,
		CommonIndent:    indent,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("error formatting diagnostic: %v\n", err)
	}
	return buf.String()
}

// utils functions used in the text template

func header(severity Severity, title string, maxLineNumWidth int, filename string, line, column int) string {
	var s string
	switch severity {
	case SeverityError:
		s = errorStyle.Sprint("error: ")
	default:
		s = warningStyle.Sprint("warning: ")
	}
	s += titleStyle.Sprint(title) + "\n"
	s += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth))
	if column > 0 {
		s += fileStyle.Sprintf("%s:%d:%d", filename, line, column)
	} else {
		s += fileStyle.Sprintf("%s:%d", filename, line)
	}
	return s
}

func codeSnippet(lines []string, line, maxLineNumWidth int, commonIndent, padding string) string {
	s := lineStyle.Sprintf("%s|\n", padding)
	if line < 1 || line > len(lines) {
		return s
	}
	text := expandTabs(strings.TrimPrefix(lines[line-1], commonIndent))
	s += lineStyle.Sprintf("%*d | ", maxLineNumWidth, line) + text + "\n"
	return s
}

func underlineAndMessage(message, padding string, line, column, length int, lines []string, commonIndent string) string {
	s := lineStyle.Sprintf("%s| ", padding)
	if line < 1 || line > len(lines) {
		return s + messageStyle.Sprintf("%s\n", message)
	}

	src := lines[line-1]
	indentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)
	start, end := 0, calculateVisualColumn(src, len(src)+1)
	if column > 0 {
		start = calculateVisualColumn(src, column)
		if length < 1 {
			length = 1
		}
		end = calculateVisualColumn(src, column+length)
	} else {
		start = indentWidth
	}
	start -= indentWidth
	end -= indentWidth
	if start < 0 {
		start = 0
	}
	if end <= start {
		end = start + 1
	}

	s += strings.Repeat(" ", start)
	s += messageStyle.Sprintf("%s\n", strings.Repeat("^", end-start))
	s += lineStyle.Sprintf("%s= ", padding)
	s += messageStyle.Sprintf("%s\n", message)
	return s
}

func note(text, padding string) string {
	return lineStyle.Sprintf("%s= ", padding) + noteStyle.Sprint("note: ") + text + "\n"
}

func calculateMaxLineNumWidth(line int) int {
	return len(strconv.Itoa(line))
}

// calculateVisualColumn returns the display offset of the 1-based byte
// column in line, with tabs expanded.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visual := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - (visual % tabWidth)
		} else {
			visual++
		}
	}
	return visual
}

func expandTabs(line string) string {
	var sb strings.Builder
	visual := 0
	for _, ch := range line {
		if ch == '\t' {
			n := tabWidth - (visual % tabWidth)
			sb.WriteString(strings.Repeat(" ", n))
			visual += n
			continue
		}
		sb.WriteRune(ch)
		visual++
	}
	return sb.String()
}

// findCommonIndent finds the indent shared by all non-empty lines.
func findCommonIndent(lines []string) string {
	var indent []rune
	first := true
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		cur := []rune(line[:len(line)-len(trimmed)])
		if first {
			indent, first = cur, false
			continue
		}
		indent = commonPrefix(indent, cur)
	}
	return string(indent)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
