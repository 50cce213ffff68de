// Package engine orchestrates a scan: it fans file analysis out over a
// worker pool and folds the per-file results into one deterministic
// report.
package engine

import (
	"context"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/FanZDStar/oss-2025/internal/cache"
	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/ignore"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/rules"
)

// Config controls one scan invocation.
type Config struct {
	Rules   rules.RunConfig
	Workers int // 0 = runtime.NumCPU()
	// PerFileTimeout bounds the analysis of a single file; 0 disables
	// the bound. A file that exceeds it contributes no findings, only
	// a diagnostic.
	PerFileTimeout time.Duration
}

// Engine ties the parse cache and the rule registry together.
type Engine struct {
	cache    *cache.Cache
	registry *rules.Registry
	log      *logrus.Logger
}

func New(c *cache.Cache, r *rules.Registry, log *logrus.Logger) *Engine {
	return &Engine{cache: c, registry: r, log: log}
}

// fileResult is everything one worker produces for one file.
type fileResult struct {
	findings   []models.Finding
	suppressed int
	cacheHit   bool
	errs       []string
}

// Scan analyzes the given files and returns the aggregated result.
// Per-file failures (unreadable file, syntax error, rule panic, file
// timeout) become diagnostics in Stats.Errors; only configuration
// errors abort the scan. Cancelling ctx stops dispatching new files
// and marks the result incomplete.
func (e *Engine) Scan(ctx context.Context, target string, paths []string, cfg Config) (*models.ScanResult, error) {
	start := time.Now()

	if err := e.registry.Validate(cfg.Rules); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(paths) > 0 && workers > len(paths) {
		workers = len(paths)
	}
	if workers < 1 {
		workers = 1
	}

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	resultCh := make(chan fileResult, len(paths))
	var incomplete atomic.Bool

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for path := range workCh {
				select {
				case <-ctx.Done():
					incomplete.Store(true)
					return nil
				default:
				}
				resultCh <- e.scanFile(ctx, path, cfg)
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(resultCh)
	}()

	result := &models.ScanResult{Target: target, ScanTime: start}
	for res := range resultCh {
		result.Stats.FilesScanned++
		result.Stats.Suppressed += res.suppressed
		if res.cacheHit {
			result.Stats.CacheHits++
		}
		result.Findings = append(result.Findings, res.findings...)
		result.Stats.Errors = append(result.Stats.Errors, res.errs...)
	}

	// diagnostics arrive in worker completion order; sort them so the
	// whole result is reproducible, with the global marker kept last
	sort.Strings(result.Stats.Errors)
	if incomplete.Load() {
		result.Stats.Incomplete = true
		result.Stats.Errors = append(result.Stats.Errors, errors.ScanTimeout().Error())
	}

	models.SortFindings(result.Findings)
	result.Stats.Duration = time.Since(start)
	return result, nil
}

// scanFile bounds the analysis of one file by the per-file timeout.
// On timeout the analysis goroutine is abandoned; its result is
// discarded when it eventually arrives.
func (e *Engine) scanFile(ctx context.Context, path string, cfg Config) fileResult {
	unit, err := models.NewSourceUnit(path)
	if err != nil {
		e.log.WithError(err).WithField("file", path).Warn("Failed to read file")
		return fileResult{errs: []string{err.Error()}}
	}

	if cfg.PerFileTimeout <= 0 {
		return e.analyze(unit, cfg)
	}

	done := make(chan fileResult, 1)
	go func() {
		done <- e.analyze(unit, cfg)
	}()

	timer := time.NewTimer(cfg.PerFileTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res
	case <-timer.C:
		timeoutErr := errors.FileTimeout(path)
		e.log.WithField("file", path).Warn("File analysis timed out")
		return fileResult{errs: []string{timeoutErr.Error()}}
	case <-ctx.Done():
		return fileResult{errs: []string{errors.ScanTimeout().Error()}}
	}
}

// analyze runs the full per-file pipeline: parse (through the cache),
// execute rules, then apply suppression directives.
func (e *Engine) analyze(unit *models.SourceUnit, cfg Config) fileResult {
	res := fileResult{}

	tree, hit, err := e.cache.GetOrParse(unit)
	res.cacheHit = hit
	if err != nil {
		e.log.WithError(err).WithField("file", unit.Path).Debug("Parse failed")
		res.errs = append(res.errs, err.Error())
		return res
	}

	findings, diags := e.registry.Run(tree, unit, cfg.Rules)
	for _, d := range diags {
		e.log.WithError(d).WithField("file", unit.Path).Warn("Rule execution failed")
		res.errs = append(res.errs, d.Error())
	}

	ictx := ignore.ParseDirectives(unit, e.log)
	res.findings, res.suppressed = ictx.Filter(findings)
	return res
}
