package promote

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"

	"github.com/modelops/promoter/pkg/descriptor"
	"github.com/modelops/promoter/pkg/git"
)

// directStrategy commits the candidate straight to the state store's
// default branch. Used for staging-like environments.
type directStrategy struct {
	cfg    Config
	logger log.Logger
}

func (s *directStrategy) promote(ctx context.Context, env Environment, tree *descriptor.Tree, revision string) (Record, error) {
	rec := Record{Environment: env.Name}

	co, err := git.Clone(ctx, s.cfg.remote(), s.cfg.Credentials, s.cfg.gitConfig())
	if err != nil {
		return rec, err
	}
	defer co.Clean()

	changed, err := detectChanges(ctx, co, env.Path, tree)
	if err != nil {
		return rec, err
	}
	if len(changed) == 0 {
		s.logger.Log("environment", env.Name, "outcome", "noop")
		return rec, nil
	}
	rec.Changed = true
	rec.ChangedPaths = changed

	if err := co.Commit(ctx, commitAction(s.cfg, env, revision)); err != nil {
		return rec, err
	}
	if err := co.Push(ctx); err != nil {
		return rec, err
	}
	rev, err := co.HeadRevision(ctx)
	if err != nil {
		return rec, err
	}
	rec.Revision = rev
	s.logger.Log("environment", env.Name, "outcome", "promoted", "revision", rev, "paths", len(changed))
	return rec, nil
}

func commitAction(cfg Config, env Environment, revision string) git.CommitAction {
	return git.CommitAction{
		Action:  fmt.Sprintf("Promote model descriptor to %s", env.Name),
		Message: fmt.Sprintf("Source commit %s", revision),
		Author:  cfg.CommitterName,
		Email:   cfg.CommitterEmail,
	}
}
