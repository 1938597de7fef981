package proguard

import (
	"errors"
	"os"
	"path/filepath"
)

// loader resolves -include directives and rejects include cycles.
type loader struct {
	readFile func(string) ([]byte, error)
	active   map[string]bool
}

func newLoader() *loader {
	return &loader{readFile: os.ReadFile, active: make(map[string]bool)}
}

// Parse parses rule text. Relative -include paths are resolved against the
// working directory.
func Parse(src string) (*Config, error) {
	return newLoader().parse("", ".", src)
}

// ParseFile parses a rule file and everything it includes. Relative
// -include paths are resolved against the including file's directory.
func ParseFile(path string) (*Config, error) {
	return newLoader().load(path)
}

func (l *loader) load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := l.readFile(abs)
	if err != nil {
		return nil, err
	}
	l.active[abs] = true
	defer delete(l.active, abs)
	return l.parse(path, filepath.Dir(abs), string(data))
}

func (l *loader) parse(file, dir, src string) (*Config, error) {
	toks, err := Lex(src)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.File = file
		}
		return nil, err
	}
	p := &parser{toks: toks, file: file, cfg: &Config{}}
	p.include = func(t Token) error {
		target := t.Value
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		abs, err := filepath.Abs(target)
		if err != nil {
			return p.errorf(t, err.Error())
		}
		if l.active[abs] {
			return p.errorf(t, "include cycle")
		}
		sub, err := l.load(abs)
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				return err
			}
			return p.errorf(t, "cannot include: "+err.Error())
		}
		p.cfg.Merge(sub)
		return nil
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.cfg, nil
}
