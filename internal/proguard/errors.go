package proguard

import "fmt"

// SyntaxError reports malformed rule text. Parsing stops at the first one.
type SyntaxError struct {
	File  string
	Line  int
	Col   int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	pos := fmt.Sprintf("line %d col %d", e.Line, e.Col)
	if e.File != "" {
		pos = e.File + ": " + pos
	}
	if e.Token != "" {
		return fmt.Sprintf("%s: %s near %q", pos, e.Msg, e.Token)
	}
	return fmt.Sprintf("%s: %s", pos, e.Msg)
}

// Warning is a non-fatal parser diagnostic, such as an unsupported directive.
type Warning struct {
	File string
	Line int
	Msg  string
}

func (w Warning) String() string {
	if w.File != "" {
		return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Msg)
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
}
