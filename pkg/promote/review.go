package promote

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"

	"github.com/modelops/promoter/pkg/descriptor"
	"github.com/modelops/promoter/pkg/git"
	"github.com/modelops/promoter/pkg/guid"
	"github.com/modelops/promoter/pkg/review"
)

// reviewStrategy proposes the candidate on a uniquely named branch and
// opens an assigned change request, leaving the protected subtree
// untouched until a human merges. Used for production-like
// environments.
type reviewStrategy struct {
	cfg      Config
	gateway  review.Gateway
	newToken guid.Generator
	logger   log.Logger
}

func (s *reviewStrategy) promote(ctx context.Context, env Environment, tree *descriptor.Tree, revision string) (Record, error) {
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

	// The token keeps concurrent promotions of different source
	// commits from colliding on a branch name, and correlates the
	// branch with its change request.
	token := s.newToken()
	branch := fmt.Sprintf("promote-%s-%s", env.Name, token)
	if err := co.SwitchToNewBranch(ctx, branch); err != nil {
		return rec, err
	}
	if err := co.Commit(ctx, commitAction(s.cfg, env, revision)); err != nil {
		return rec, err
	}
	if err := co.Push(ctx); err != nil {
		// nothing externally visible exists yet; plain failure, not a
		// partial promotion
		return rec, err
	}
	rec.Branch = branch
	rev, err := co.HeadRevision(ctx)
	if err != nil {
		return rec, err
	}
	rec.Revision = rev

	digest, err := tree.Digest()
	if err != nil {
		return rec, err
	}
	id, err := s.gateway.CreateRequest(ctx, review.Request{
		Title: fmt.Sprintf("Promote model descriptor to %s", env.Name),
		Body:  requestBody(env, revision, digest, token),
		Head:  branch,
		Base:  s.cfg.Branch,
	})
	if err != nil {
		return rec, requestNotCreatedError(env.Name, branch, err)
	}
	rec.RequestID = id

	approver := env.approver(s.cfg.Approver)
	if err := s.gateway.AssignRequest(ctx, id, approver); err != nil {
		return rec, requestUnassignedError(env.Name, branch, id, err)
	}

	s.logger.Log("environment", env.Name, "outcome", "promoted",
		"branch", branch, "request", id, "assignee", approver)
	return rec, nil
}

func requestBody(env Environment, revision, digest, token string) string {
	return fmt.Sprintf(`Model promotion to the %s environment.

Source commit: %s
Descriptor digest: %s
Correlation token: %s

Merging this request updates the recorded state under %q. The engine
will not touch that subtree itself.
`, env.Name, revision, digest, token, env.Path)
}
