package git

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
)

// Config holds some values we use when working in the working clone of
// the state-store repo.
type Config struct {
	Branch    string // branch we clone, and push direct promotions to
	UserName  string
	UserEmail string
}

// Checkout is a local working clone of the state-store repo. It is
// used for one-off promotion transactions: materialize a descriptor,
// commit, push. It has no locking; concurrent runs each get their own.
type Checkout struct {
	dir      string
	upstream Remote
	auth     Auth
	config   Config
	branch   string // the branch currently checked out
}

// Clone makes a fresh working clone of the remote at its configured
// branch, with the committer identity set up.
func Clone(ctx context.Context, upstream Remote, auth Auth, conf Config) (*Checkout, error) {
	repoDir, err := ioutil.TempDir(os.TempDir(), "promoter-working")
	if err != nil {
		return nil, err
	}
	if _, err := clone(ctx, repoDir, upstream.WithAuth(auth), conf.Branch); err != nil {
		os.RemoveAll(repoDir)
		return nil, CloningError(upstream.SafeURL(), err)
	}
	if err := config(ctx, repoDir, conf.UserName, conf.UserEmail); err != nil {
		os.RemoveAll(repoDir)
		return nil, err
	}
	return &Checkout{
		dir:      repoDir,
		upstream: upstream,
		auth:     auth,
		config:   conf,
		branch:   conf.Branch,
	}, nil
}

func (c *Checkout) Dir() string {
	return c.dir
}

// WorkPath resolves a path relative to the root of the working clone.
func (c *Checkout) WorkPath(rel string) string {
	return filepath.Join(c.dir, rel)
}

func (c *Checkout) Clean() {
	if c.dir != "" {
		os.RemoveAll(c.dir)
	}
}

// SwitchToNewBranch creates a branch at the current HEAD and makes
// subsequent commits and pushes apply to it.
func (c *Checkout) SwitchToNewBranch(ctx context.Context, branch string) error {
	if err := checkoutNew(ctx, c.dir, branch); err != nil {
		return err
	}
	c.branch = branch
	return nil
}

// Branch is the branch the checkout currently has checked out, which
// is where Push sends commits.
func (c *Checkout) Branch() string {
	return c.branch
}

// Stage adds everything under the given path (relative to the clone
// root) to the index, including deletions.
func (c *Checkout) Stage(ctx context.Context, path string) error {
	return add(ctx, c.dir, path)
}

// StagedChanges lists paths under the given path whose staged content
// differs from HEAD. An empty result means promotion is a no-op.
func (c *Checkout) StagedChanges(ctx context.Context, path string) ([]string, error) {
	return stagedChanges(ctx, c.dir, "HEAD", path)
}

// Commit records the staged changes with the structured promotion
// message.
func (c *Checkout) Commit(ctx context.Context, action CommitAction) error {
	return commit(ctx, c.dir, action)
}

// Push sends the current branch upstream. A rejection because the
// remote moved on is reported as a conflict, distinct from transport
// failures, so callers can re-run rather than re-push.
func (c *Checkout) Push(ctx context.Context) error {
	ref := c.branch
	if ref == "" {
		// cloned at the remote's default branch without naming it
		ref = "HEAD"
	}
	if err := push(ctx, c.dir, c.upstream.WithAuth(c.auth), []string{ref}); err != nil {
		if isRejectedPush(err) {
			return ConflictError(c.upstream.SafeURL(), err)
		}
		return PushError(c.upstream.SafeURL(), err)
	}
	return nil
}

func (c *Checkout) HeadRevision(ctx context.Context) (string, error) {
	return refRevision(ctx, c.dir, "HEAD")
}

// HeadMessage returns the raw commit message at HEAD, for parsing with
// ParseCommitMessage.
func (c *Checkout) HeadMessage(ctx context.Context) (string, error) {
	return commitMessage(ctx, c.dir, "HEAD")
}
