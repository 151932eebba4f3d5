package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/webrecon/internal/config"
	"github.com/nao1215/webrecon/internal/crawler"
	"github.com/nao1215/webrecon/internal/database"
	"github.com/nao1215/webrecon/internal/graph"
	"github.com/nao1215/webrecon/internal/model"
)

// CrawlStep runs the breadth-first traversal and attaches the finished
// crawl result to the report. It is always the first step; every later
// step works from its output.
type CrawlStep struct {
	// spider performs the traversal.
	spider *crawler.Spider

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step driven by the given spider.
func NewCrawlStep(spider *crawler.Spider, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. A crawl that was cancelled mid-run still yields a
// partial result, so only fatal misconfigurations (invalid seed) fail the
// step.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	result, err := s.spider.Crawl(ctx, report.Seed)
	if err != nil {
		return fmt.Errorf("crawl of %s failed: %w", report.Seed, err)
	}

	report.Result = result
	return nil
}

// RankStep assigns importance scores to every node of the crawled graph
// and computes the aggregate statistics the report writers consume.
type RankStep struct {
	// mode selects the scoring algorithm.
	mode string

	// damping, maxIterations, and epsilon tune the link analysis when
	// mode is pagerank. Zero values use the graph package defaults.
	damping       float64
	maxIterations int
	epsilon       float64

	// logger for structured logging.
	logger *slog.Logger
}

// RankStepOption configures a RankStep.
type RankStepOption func(*RankStep)

// WithRankDamping sets the damping factor for link analysis.
func WithRankDamping(d float64) RankStepOption {
	return func(s *RankStep) {
		s.damping = d
	}
}

// WithRankMaxIterations caps the link analysis iteration count.
func WithRankMaxIterations(n int) RankStepOption {
	return func(s *RankStep) {
		s.maxIterations = n
	}
}

// WithRankEpsilon sets the convergence threshold for link analysis.
func WithRankEpsilon(e float64) RankStepOption {
	return func(s *RankStep) {
		s.epsilon = e
	}
}

// WithRankLogger sets a custom logger for the rank step.
func WithRankLogger(logger *slog.Logger) RankStepOption {
	return func(s *RankStep) {
		s.logger = logger
	}
}

// NewRankStep creates a ranking step using the given scoring mode, one of
// config.RankModeInbound or config.RankModePageRank.
func NewRankStep(mode string, opts ...RankStepOption) *RankStep {
	s := &RankStep{
		mode:   mode,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RankStep) Name() string {
	return "rank"
}

// Do scores the graph and fills in the report statistics.
func (s *RankStep) Do(_ context.Context, report *model.CrawlReport) error {
	if report.Result == nil {
		return errors.New("rank step requires a crawl result")
	}

	var scores map[string]float64
	switch s.mode {
	case config.RankModeInbound:
		scores = graph.RankInbound(report.Result.Nodes)
	case config.RankModePageRank:
		opts := make([]graph.RankerOption, 0, 3)
		if s.damping > 0 {
			opts = append(opts, graph.WithDamping(s.damping))
		}
		if s.maxIterations > 0 {
			opts = append(opts, graph.WithMaxIterations(s.maxIterations))
		}
		if s.epsilon > 0 {
			opts = append(opts, graph.WithEpsilon(s.epsilon))
		}
		scores = graph.NewRanker(opts...).Rank(report.Result.Nodes, report.Result.Edges)
	default:
		return fmt.Errorf("unknown rank mode %q", s.mode)
	}

	graph.ApplyScores(report.Result.Nodes, scores)
	report.Stats = model.ComputeStats(report.Result)

	s.logger.Debug("graph ranked",
		"seed", report.Result.Seed,
		"mode", s.mode,
		"nodes", len(scores),
	)
	return nil
}

// PersistStep saves the finished crawl to the history database and records
// the new run's ID on the report.
type PersistStep struct {
	// db is the crawl history database.
	db *database.CrawlDB

	// logger for structured logging.
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a persistence step writing to the given database.
func NewPersistStep(db *database.CrawlDB, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the crawl result. Runs after ranking so stored scores match the
// rendered report.
func (s *PersistStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if report.Result == nil {
		return errors.New("persist step requires a crawl result")
	}

	id, err := s.db.SaveResult(ctx, report.Result)
	if err != nil {
		return fmt.Errorf("failed to persist crawl of %s: %w", report.Result.Seed, err)
	}

	report.DatabaseID = id
	s.logger.Debug("crawl persisted",
		"seed", report.Result.Seed,
		"run_id", id,
	)
	return nil
}
