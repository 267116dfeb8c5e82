package promote

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/modelops/promoter/pkg/descriptor"
	"github.com/modelops/promoter/pkg/guid"
	"github.com/modelops/promoter/pkg/review"
)

type strategy interface {
	promote(ctx context.Context, env Environment, tree *descriptor.Tree, revision string) (Record, error)
}

// Promoter drives one promotion run: each configured environment in
// declared order, earlier environments first so that a reviewer of a
// gated environment can inspect an already-promoted staging state.
type Promoter struct {
	cfg        Config
	strategies map[StrategyKind]strategy
	logger     log.Logger
}

type Option func(*options)

type options struct {
	logger   log.Logger
	newToken guid.Generator
}

// WithLogger replaces the default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenGenerator replaces the branch-token generator, so tests can
// supply deterministic tokens.
func WithTokenGenerator(g guid.Generator) Option {
	return func(o *options) { o.newToken = g }
}

// New validates the configuration and constructs a Promoter. A nil
// gateway is acceptable when no environment is review-gated.
func New(cfg Config, gateway review.Gateway, opts ...Option) (*Promoter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{
		logger:   log.NewNopLogger(),
		newToken: guid.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, env := range cfg.Environments {
		if env.Strategy == StrategyReviewGated && gateway == nil {
			return nil, configError("environment " + env.Name + " is review-gated but no review gateway is configured")
		}
	}
	return &Promoter{
		cfg: cfg,
		strategies: map[StrategyKind]strategy{
			StrategyDirect:      &directStrategy{cfg: cfg, logger: o.logger},
			StrategyReviewGated: &reviewStrategy{cfg: cfg, gateway: gateway, newToken: o.newToken, logger: o.logger},
		},
		logger: o.logger,
	}, nil
}

// Run promotes the candidate descriptor, built from the given source
// revision, through every configured environment. A no-op for one
// environment does not stop later environments; a failure does. The
// returned result carries whatever was recorded before any failure.
func (p *Promoter) Run(ctx context.Context, tree *descriptor.Tree, revision string) (*RunResult, error) {
	result := &RunResult{}
	for _, env := range p.cfg.Environments {
		strat, ok := p.strategies[env.Strategy]
		if !ok {
			// Validate catches this before any mutation; kept as a
			// guard for strategies map drift
			return result, unknownStrategyError(env.Name, string(env.Strategy))
		}
		begin := time.Now()
		rec, err := strat.promote(ctx, env, tree, revision)
		result.Records = append(result.Records, rec)
		instrumentPromotion(env.Name, outcomeOf(rec, err), time.Since(begin))
		if err != nil {
			return result, errors.Wrapf(err, "promoting to %s", env.Name)
		}
	}
	return result, nil
}

func outcomeOf(rec Record, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case rec.Changed:
		return OutcomePromoted
	default:
		return OutcomeNoOp
	}
}
