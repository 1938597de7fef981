// Package obfuscate runs the rename pipeline: parse rules, match them
// against a class container, allocate names, rewrite references and write
// the mapping.
package obfuscate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/dex"
	"github.com/gnolang/pgrename/internal/mapping"
	"github.com/gnolang/pgrename/internal/matcher"
	"github.com/gnolang/pgrename/internal/naming"
	"github.com/gnolang/pgrename/internal/proguard"
	"github.com/gnolang/pgrename/internal/rewrite"
)

// ErrMappingMismatch is returned when the produced mapping differs from the
// expected one. The diff is on Result.MappingDiff.
var ErrMappingMismatch = errors.New("mapping differs from expected")

// Engine runs the pipeline.
type Engine struct {
	Logger *zap.Logger
	// Progress, when set, is called after each class is verified.
	Progress func(done, total int)
}

// New returns an engine logging to logger. A nil logger discards output.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Logger: logger}
}

// Result reports what a run did.
type Result struct {
	RunID string

	Graph   *dex.Graph
	Rules   *proguard.Config
	Mapping *mapping.Map

	RuleStats   []matcher.RuleStat
	Diagnostics []error
	Rewrite     *rewrite.Stats
	Renamed     Counts
	MappingDiff string

	Elapsed time.Duration
}

// Counts is how many entities of each kind were renamed.
type Counts struct {
	Classes int
	Fields  int
	Methods int
}

// Summary renders one line of counts.
func (r *Result) Summary() string {
	s := fmt.Sprintf("renamed %s classes, %s fields, %s methods",
		humanize.Comma(int64(r.Renamed.Classes)),
		humanize.Comma(int64(r.Renamed.Fields)),
		humanize.Comma(int64(r.Renamed.Methods)))
	if r.Rewrite != nil {
		s += fmt.Sprintf("; verified %s references", humanize.Comma(int64(r.Rewrite.Operands)))
	}
	if n := len(r.Diagnostics); n > 0 {
		s += fmt.Sprintf("; %d %s", n, pluralize(n, "warning", "warnings"))
	}
	return s
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Plan loads the inputs named by cfg, matches the rules and allocates names
// without changing the graph.
func (e *Engine) Plan(ctx context.Context, cfg *Config) (*Result, *naming.RenameMap, error) {
	log := e.logger()
	g, err := dex.Load(cfg.Input)
	if err != nil {
		return nil, nil, err
	}
	rules, err := LoadRules(cfg.Rules)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range rules.Warnings {
		log.Warn("rule warning", zap.String("at", w.String()))
	}

	applyPath := cfg.Mapping.Apply
	if applyPath == "" {
		applyPath = rules.ApplyMapping
	}
	var prior *mapping.Map
	if applyPath != "" {
		if prior, err = readMapping(applyPath); err != nil {
			return nil, nil, err
		}
		log.Info("applying mapping", zap.String("path", applyPath), zap.Int("classes", len(prior.Classes)))
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return e.plan(ctx, g, rules, planOptions{
		workers: workers,
		prior:   prior,
		unique:  cfg.UniqueMemberNames,
	})
}

type planOptions struct {
	workers int
	prior   *mapping.Map
	unique  bool
}

func (e *Engine) plan(ctx context.Context, g *dex.Graph, rules *proguard.Config, opts planOptions) (*Result, *naming.RenameMap, error) {
	log := e.logger()
	res := &Result{RunID: uuid.NewString()[:12], Graph: g, Rules: rules}
	if err := g.CheckHierarchy(); err != nil {
		return nil, nil, err
	}
	cg := classgraph.New(g)
	log.Debug("graph loaded",
		zap.String("run", res.RunID),
		zap.Int("classes", len(cg.Classes())),
		zap.Int("components", cg.NumComponents()))

	m, err := matcher.Match(ctx, cg, rules, matcher.Options{Workers: opts.workers})
	if err != nil {
		return nil, nil, fmt.Errorf("match: %w", err)
	}
	res.RuleStats = m.Stats
	res.Diagnostics = m.Diagnostics
	for _, d := range m.Diagnostics {
		log.Warn("rule diagnostic", zap.String("run", res.RunID), zap.Error(d))
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	nopts := naming.Options{
		UniqueMemberNames: opts.unique || rules.UseUniqueClassMemberNames,
		FoldCase:          rules.DontUseMixedCaseClassNames,
	}
	if opts.prior != nil {
		nopts.Preferred = opts.prior
	}
	rm, err := naming.Allocate(cg, m.Verdicts, nopts)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate names: %w", err)
	}
	res.Renamed.Classes, res.Renamed.Fields, res.Renamed.Methods = rm.Counts()
	res.Mapping = mapping.Build(cg, rm)
	return res, rm, nil
}

// Obfuscate runs the whole pipeline on g in memory. g is rewritten in place
// and nothing is written to disk.
func (e *Engine) Obfuscate(ctx context.Context, g *dex.Graph, rules *proguard.Config) (*Result, error) {
	start := time.Now()
	res, rm, err := e.plan(ctx, g, rules, planOptions{workers: runtime.NumCPU()})
	if err != nil {
		return nil, err
	}
	if err := e.apply(ctx, res, rm); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func (e *Engine) apply(ctx context.Context, res *Result, rm *naming.RenameMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The adapter indexes names at construction, so the rewrite gets its
	// own view of the graph.
	stats, err := rewrite.Apply(ctx, classgraph.New(res.Graph), rm, rewrite.Options{Progress: e.Progress})
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	res.Rewrite = stats
	e.logger().Info("rewrite verified",
		zap.String("run", res.RunID),
		zap.Int("types", stats.Types),
		zap.Int("fields", stats.Fields),
		zap.Int("methods", stats.Methods),
		zap.Int("operands", stats.Operands))
	return nil
}

// Run executes the pipeline described by cfg and writes the rewritten
// container and the mapping. Nothing is written unless the rewrite
// verifies.
func (e *Engine) Run(ctx context.Context, cfg *Config) (*Result, error) {
	log := e.logger()
	start := time.Now()

	res, rm, err := e.Plan(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("names allocated",
		zap.String("run", res.RunID),
		zap.Int("classes", res.Renamed.Classes),
		zap.Int("fields", res.Renamed.Fields),
		zap.Int("methods", res.Renamed.Methods))

	if err := e.apply(ctx, res, rm); err != nil {
		return nil, err
	}

	if cfg.Mapping.Expect != "" {
		want, err := os.ReadFile(cfg.Mapping.Expect)
		if err != nil {
			return nil, fmt.Errorf("read expected mapping: %w", err)
		}
		if diff, same := mapping.Compare(string(want), res.Mapping.String()); !same {
			res.MappingDiff = diff
			return res, ErrMappingMismatch
		}
	}

	if cfg.DryRun {
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := cfg.OutputPath()
	if err := dex.Save(res.Graph, out); err != nil {
		return nil, err
	}
	log.Info("container written", zap.String("run", res.RunID), zap.String("path", out))

	mapOut := cfg.Mapping.Out
	if mapOut == "" {
		mapOut = res.Rules.PrintMapping
	}
	if mapOut != "" {
		if err := writeMapping(res.Mapping, mapOut); err != nil {
			return nil, err
		}
		log.Info("mapping written", zap.String("run", res.RunID), zap.String("path", mapOut))
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// LoadRules parses and merges rule files in order.
func LoadRules(paths []string) (*proguard.Config, error) {
	var merged *proguard.Config
	for _, p := range paths {
		cfg, err := proguard.ParseFile(p)
		if err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
		if merged == nil {
			merged = cfg
			continue
		}
		merged.Merge(cfg)
	}
	if merged == nil {
		merged = &proguard.Config{}
	}
	return merged, nil
}

func readMapping(path string) (*mapping.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mapping.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	return m, nil
}

func writeMapping(m *mapping.Map, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write mapping %s: %w", path, err)
	}
	return f.Close()
}
