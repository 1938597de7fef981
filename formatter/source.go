package formatter

import (
	"bufio"
	"os"
)

// ReadLines returns the lines of a rule file.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// Sources loads every file the diagnostics point at. Files that cannot be
// read are left out; their diagnostics render without a snippet.
func Sources(diags []Diagnostic) map[string][]string {
	src := make(map[string][]string)
	for _, d := range diags {
		if d.File == "" {
			continue
		}
		if _, ok := src[d.File]; ok {
			continue
		}
		if lines, err := ReadLines(d.File); err == nil {
			src[d.File] = lines
		}
	}
	return src
}
