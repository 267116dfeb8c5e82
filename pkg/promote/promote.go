// Package promote implements the promotion engine: deciding whether a
// built deployment descriptor differs from what an environment has
// recorded in the state store, and if so, moving it there by the
// environment's declared strategy.
package promote

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/modelops/promoter/pkg/git"
)

// StrategyKind selects how an environment's recorded state may change.
type StrategyKind string

const (
	// StrategyDirect overwrites the environment subtree and commits to
	// the default branch. For staging-like environments.
	StrategyDirect StrategyKind = "direct"
	// StrategyReviewGated proposes the change on a branch and opens an
	// assigned change request; only a human merge lands it. For
	// production-like environments.
	StrategyReviewGated StrategyKind = "review-gated"
)

// Environment is one subtree of the state store that descriptors get
// promoted into.
type Environment struct {
	Name     string       `yaml:"name"`
	Path     string       `yaml:"path"`
	Strategy StrategyKind `yaml:"strategy"`
	// Approver overrides the engine-wide approver for this
	// environment's change requests. Only meaningful for review-gated
	// environments.
	Approver string `yaml:"approver,omitempty"`
}

func (e Environment) approver(fallback string) string {
	if e.Approver != "" {
		return e.Approver
	}
	return fallback
}

// Config is everything the engine needs for a run, passed in
// explicitly at construction. Nothing is read from process-global
// state.
type Config struct {
	// StateStoreURL is the remote of the GitOps repository
	StateStoreURL string `yaml:"stateStoreUrl"`
	// Branch is the default branch of the state store; empty means the
	// remote's own default
	Branch       string        `yaml:"branch"`
	Environments []Environment `yaml:"environments"`
	// Approver is the identity assigned to change requests, unless an
	// environment names its own
	Approver    string   `yaml:"approver"`
	Credentials git.Auth `yaml:"-"`
	// CommitterName and CommitterEmail become the Author/Email fields
	// of the structured commit message; both may be empty
	CommitterName  string `yaml:"committerName"`
	CommitterEmail string `yaml:"committerEmail"`
}

// Validate reports configuration the engine cannot act on. It is
// called before any network operation, so a bad config never mutates
// anything.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StateStoreURL) == "" {
		return configError("no state store URL configured")
	}
	if len(c.Environments) == 0 {
		return configError("no environments configured")
	}
	seen := map[string]bool{}
	for _, env := range c.Environments {
		if strings.TrimSpace(env.Name) == "" {
			return configError("environment with empty name")
		}
		if seen[env.Name] {
			return configError("environment " + env.Name + " configured twice")
		}
		seen[env.Name] = true
		if strings.TrimSpace(env.Path) == "" {
			return configError("environment " + env.Name + " has no storage path")
		}
		if !pathWithinRepo(env.Path) {
			return configError("environment " + env.Name + " storage path " + env.Path + " escapes the state store")
		}
		switch env.Strategy {
		case StrategyDirect:
		case StrategyReviewGated:
			if env.approver(c.Approver) == "" {
				return configError("review-gated environment " + env.Name + " has no approver")
			}
			// change requests need an explicit base line to target
			if strings.TrimSpace(c.Branch) == "" {
				return configError("review-gated environment " + env.Name + " requires the state store branch to be named")
			}
		default:
			return unknownStrategyError(env.Name, string(env.Strategy))
		}
	}
	return nil
}

// pathWithinRepo reports whether a storage path names a proper
// subtree of the state store. Anything absolute, or whose cleaned
// form is the repo root or climbs out of it, would make the sync
// step destroy content outside the environment subtree.
func pathWithinRepo(p string) bool {
	if filepath.IsAbs(p) || path.IsAbs(filepath.ToSlash(p)) {
		return false
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return false
	}
	return true
}

func (c Config) remote() git.Remote {
	return git.Remote{URL: c.StateStoreURL}
}

func (c Config) gitConfig() git.Config {
	// the repo-local committer identity must be non-empty for git to
	// accept commits; the structured message carries the real actor,
	// which may be empty
	name, email := c.CommitterName, c.CommitterEmail
	if name == "" {
		name = "promoter"
	}
	if email == "" {
		email = "promoter@localhost"
	}
	return git.Config{
		Branch:    c.Branch,
		UserName:  name,
		UserEmail: email,
	}
}
