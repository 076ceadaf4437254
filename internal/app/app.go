// Package app wires the program data layer shared by the API server and the
// kairo CLI: the data source picked by config, the curriculum store, the
// term-offering catalog and the optional model client.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/datasource"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
	"github.com/oumizumi/Kairo-sub002/pkg/storage"
)

// warmConcurrency bounds parallel fetches during Warm.
const warmConcurrency = 4

// Data is the read side of program data.
type Data struct {
	Source  datasource.Source
	Store   *curriculum.Store
	Catalog *offering.Catalog
	logger  *zap.Logger
}

// OpenSource returns the datasource.Source named by data.source.
func OpenSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.Source, error) {
	switch cfg.Data.Source {
	case "", "file":
		return datasource.NewFileSource(cfg.Data.Dir), nil
	case "http":
		return datasource.NewHTTPSource(cfg.Data.BaseURL, 15*time.Second), nil
	case "minio":
		store, err := storage.NewClient(ctx, &cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		return datasource.NewObjectSource(store, cfg.Data.Dir), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// OpenData builds the store and catalog over the configured source.
func OpenData(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Data, error) {
	src, err := OpenSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("program data source ready",
		zap.String("source", cfg.Data.Source),
		zap.String("index", cfg.Data.IndexPath),
		zap.String("term_data", cfg.Data.TermDataPath),
	)

	return &Data{
		Source:  src,
		Store:   curriculum.NewStore(src, cfg.Data.IndexPath, cfg.Data.CurriculumDir, logger),
		Catalog: offering.NewCatalog(src, cfg.Data.TermDataPath, cfg.Data.TermCacheTTL, cfg.Data.CheckInterval, logger),
		logger:  logger,
	}, nil
}

// WarmReport what Warm loaded.
type WarmReport struct {
	Programs    int      `json:"programs" yaml:"programs"`
	Curricula   int      `json:"curricula" yaml:"curricula"`
	Terms       []string `json:"terms" yaml:"terms"`
	Courses     int      `json:"courses" yaml:"courses"`
	Unavailable []string `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// Warm loads the program index, every curriculum with content and every term
// in parallel so the first requests hit warm caches. Missing curriculum files
// are reported, not fatal; an unreadable index or term document is.
func (d *Data) Warm(ctx context.Context) (*WarmReport, error) {
	programs, err := d.Store.LoadProgramIndex(ctx)
	if err != nil {
		return nil, err
	}
	terms, err := d.Catalog.Terms(ctx)
	if err != nil {
		return nil, err
	}

	report := &WarmReport{Programs: len(programs), Terms: terms}
	curricula := make([]bool, len(programs))
	courses := make([]int, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for i, p := range programs {
		if !p.HasContent || p.File == "" {
			continue
		}
		g.Go(func() error {
			if _, err := d.Store.LoadCurriculumData(gctx, p.File); err != nil {
				d.logger.Warn("curriculum not loaded", zap.String("program", p.ID), zap.Error(err))
				return nil
			}
			curricula[i] = true
			return nil
		})
	}
	for i, term := range terms {
		g.Go(func() error {
			off, err := d.Catalog.Term(gctx, term)
			if err != nil {
				return fmt.Errorf("load term %s: %w", term, err)
			}
			courses[i] = len(off.Courses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, ok := range curricula {
		switch {
		case ok:
			report.Curricula++
		case programs[i].HasContent && programs[i].File != "":
			report.Unavailable = append(report.Unavailable, programs[i].ID)
		}
	}
	for _, n := range courses {
		report.Courses += n
	}
	return report, nil
}

// StartRefresh re-probes the term data on spec (standard 5-field cron) and
// reloads it when its version changed. An empty spec disables the job.
func (d *Data) StartRefresh(spec string) (*cron.Cron, error) {
	c := cron.New()
	if spec == "" {
		return c, nil
	}

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		changed, err := d.Catalog.Refresh(ctx)
		if err != nil {
			d.logger.Warn("scheduled term data refresh failed", zap.Error(err))
			return
		}
		d.logger.Debug("scheduled term data refresh", zap.Bool("reloaded", changed))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid data.refresh_cron %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}

// NewLLM returns the Gemini client, or nil when no API key is configured.
func NewLLM(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	if cfg.AI.APIKey == "" {
		logger.Info("ai.api_key not set, the classify endpoint is disabled")
		return nil, nil
	}
	g, err := llm.NewGemini(ctx, &cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	return g, nil
}
