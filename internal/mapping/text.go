package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/gnolang/pgrename/internal/descriptor"
)

// ParseError reports a malformed mapping line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mapping line %d: %s: %q", e.Line, e.Msg, e.Text)
}

func javaParams(params []string) string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = descriptor.JavaType(p)
	}
	return strings.Join(out, ",")
}

// String renders the mapping text.
func (m *Map) String() string {
	var sb strings.Builder
	for _, c := range m.Classes {
		fmt.Fprintf(&sb, "%s -> %s:\n", descriptor.ExternalName(c.Old), descriptor.ExternalName(c.New))
		for _, f := range c.Fields {
			fmt.Fprintf(&sb, "    %s %s -> %s\n", descriptor.JavaType(f.Type), f.Name, f.New)
		}
		for _, meth := range c.Methods {
			fmt.Fprintf(&sb, "    %s %s(%s) -> %s\n", descriptor.JavaType(meth.Type), meth.Name, javaParams(meth.Params), meth.New)
		}
	}
	return sb.String()
}

// WriteTo writes the mapping text to w.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, m.String())
	return int64(n), err
}

// Read parses mapping text. Line number ranges ("12:14:void run() -> a")
// and comment lines are accepted and ignored.
func Read(r io.Reader) (*Map, error) {
	m := newMap()
	sc := bufio.NewScanner(r)
	var cur *Class
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		perr := func(msg string) error {
			return &ParseError{Line: line, Text: text, Msg: msg}
		}

		if text[0] != ' ' && text[0] != '\t' {
			c, err := parseHeader(trimmed)
			if err != nil {
				return nil, perr(err.Error())
			}
			if _, dup := m.byOld[c.Old]; dup {
				return nil, perr("duplicate class")
			}
			cur = c
			m.add(c)
			continue
		}
		if cur == nil {
			return nil, perr("member outside of a class")
		}
		mem, err := parseMember(trimmed)
		if err != nil {
			return nil, perr(err.Error())
		}
		if mem.Method {
			cur.Methods = append(cur.Methods, mem)
		} else {
			cur.Fields = append(cur.Fields, mem)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseHeader(s string) (*Class, error) {
	if !strings.HasSuffix(s, ":") {
		return nil, fmt.Errorf("class line must end with ':'")
	}
	old, renamed, ok := strings.Cut(strings.TrimSuffix(s, ":"), " -> ")
	if !ok {
		return nil, fmt.Errorf("missing '->'")
	}
	old, renamed = strings.TrimSpace(old), strings.TrimSpace(renamed)
	if old == "" || renamed == "" {
		return nil, fmt.Errorf("empty class name")
	}
	return &Class{Old: descriptor.InternalName(old), New: descriptor.InternalName(renamed)}, nil
}

// stripLines removes a leading "start:end:" line range.
func stripLines(s string) string {
	for i := 0; i < 2; i++ {
		j := strings.IndexByte(s, ':')
		if j <= 0 || strings.Trim(s[:j], "0123456789") != "" {
			break
		}
		s = s[j+1:]
	}
	return s
}

func parseMember(s string) (Member, error) {
	var mem Member
	lhs, renamed, ok := strings.Cut(s, " -> ")
	if !ok {
		return mem, fmt.Errorf("missing '->'")
	}
	mem.New = strings.TrimSpace(renamed)
	lhs = stripLines(strings.TrimSpace(lhs))

	typ, rest, ok := strings.Cut(lhs, " ")
	if !ok {
		return mem, fmt.Errorf("missing member name")
	}
	var err error
	if mem.Type, err = descriptor.FromJavaType(typ); err != nil {
		return mem, err
	}

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		mem.Name = strings.TrimSpace(rest)
		return mem, nil
	}
	closing := strings.IndexByte(rest, ')')
	if closing < open {
		return mem, fmt.Errorf("unbalanced parameter list")
	}
	mem.Method = true
	mem.Name = rest[:open]
	mem.Params = []string{}
	if list := strings.TrimSpace(rest[open+1 : closing]); list != "" {
		for _, p := range strings.Split(list, ",") {
			d, err := descriptor.FromJavaType(p)
			if err != nil {
				return mem, err
			}
			mem.Params = append(mem.Params, d)
		}
	}
	return mem, nil
}

// Compare diffs two mapping texts line by line. It returns the changed
// lines prefixed with "-" (only in want) or "+" (only in got), and whether
// the texts are identical.
func Compare(want, got string) (string, bool) {
	if want == got {
		return "", true
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToRunes(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l != "" {
				sb.WriteString(prefix + strings.TrimSuffix(l, "\n") + "\n")
			}
		}
	}
	return sb.String(), false
}
