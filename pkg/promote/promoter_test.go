package promote_test

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelops/promoter/pkg/descriptor"
	promerr "github.com/modelops/promoter/pkg/errors"
	"github.com/modelops/promoter/pkg/git"
	"github.com/modelops/promoter/pkg/git/gittest"
	"github.com/modelops/promoter/pkg/promote"
	"github.com/modelops/promoter/pkg/review"
)

const testRevision = "4ce6882431fd8cadeb544daf7a0a35fec0b4b4ed"

type fakeGateway struct {
	createErr error
	assignErr error

	requests []review.Request
	assigned map[int]string
}

func (g *fakeGateway) CreateRequest(ctx context.Context, req review.Request) (int, error) {
	if g.createErr != nil {
		return 0, g.createErr
	}
	g.requests = append(g.requests, req)
	return len(g.requests), nil
}

func (g *fakeGateway) AssignRequest(ctx context.Context, id int, assignee string) error {
	if g.assignErr != nil {
		return g.assignErr
	}
	if g.assigned == nil {
		g.assigned = map[int]string{}
	}
	g.assigned[id] = assignee
	return nil
}

func candidateTree(t *testing.T, files map[string]string) (*descriptor.Tree, func()) {
	dir, err := ioutil.TempDir(os.TempDir(), "promoter-candidate")
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(path, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
	}
	tree, err := descriptor.NewTree(dir)
	if err != nil {
		t.Fatal(err)
	}
	return tree, func() { os.RemoveAll(dir) }
}

func testConfig(remote git.Remote, branch string, envs ...promote.Environment) promote.Config {
	return promote.Config{
		StateStoreURL: remote.URL,
		Branch:        branch,
		Environments:  envs,
		Approver:      "release-owner",
	}
}

func staticTokens(tokens ...string) func() string {
	i := 0
	return func() string {
		t := tokens[i%len(tokens)]
		i++
		return t
	}
}

var modelFiles = map[string]string{
	"deployment.yaml": "replicas: 2\n",
	"service.yaml":    "port: 80\n",
	"model.yaml":      "version: 4\n",
}

// Scenario: staging has no recorded state yet; the first promotion
// reports every candidate file and lands one commit on the default
// branch, leaving the subtree byte-identical to the candidate.
func TestDirectFirstPromotion(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{"README.md": "config repo\n"})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	staging := promote.Environment{Name: "staging", Path: "environments/staging", Strategy: promote.StrategyDirect}
	p, err := promote.New(testConfig(remote, branch, staging), nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomePromoted, result.Outcome())
	if assert.Len(t, result.Records, 1) {
		rec := result.Records[0]
		assert.True(t, rec.Changed)
		assert.ElementsMatch(t, []string{
			"environments/staging/deployment.yaml",
			"environments/staging/model.yaml",
			"environments/staging/service.yaml",
		}, rec.ChangedPaths)
		assert.NotEmpty(t, rec.Revision)
	}

	assert.Equal(t, 2, gittest.RevCount(t, remote, branch))
	for name, content := range modelFiles {
		got, ok := gittest.ShowFile(t, remote, branch, "environments/staging/"+name)
		assert.True(t, ok, name)
		assert.Equal(t, content, got, name)
	}
}

// Scenario: staging already equals the candidate; the run exits
// successfully with zero commits and zero pushes.
func TestDirectNoOp(t *testing.T) {
	seed := map[string]string{}
	for name, content := range modelFiles {
		seed["environments/staging/"+name] = content
	}
	remote, branch, cleanup := gittest.Repo(t, seed)
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	staging := promote.Environment{Name: "staging", Path: "environments/staging", Strategy: promote.StrategyDirect}
	p, err := promote.New(testConfig(remote, branch, staging), nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomeNoOp, result.Outcome())
	assert.False(t, result.Records[0].Changed)
	assert.Equal(t, 1, gittest.RevCount(t, remote, branch))
}

// Promoting the same descriptor twice in a row: the second run is a
// no-op and produces no additional commits.
func TestDirectIdempotent(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{"README.md": "config repo\n"})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	staging := promote.Environment{Name: "staging", Path: "environments/staging", Strategy: promote.StrategyDirect}
	p, err := promote.New(testConfig(remote, branch, staging), nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomePromoted, first.Outcome())

	second, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomeNoOp, second.Outcome())
	assert.Equal(t, 2, gittest.RevCount(t, remote, branch))
}

// Scenario: production differs from the candidate. The run pushes a
// single branch and opens one assigned change request carrying the
// correlation token, while the protected subtree on the base line
// stays untouched.
func TestReviewGatedPromotion(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{
		"environments/production/deployment.yaml": "replicas: 1\n",
	})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	gateway := &fakeGateway{}
	production := promote.Environment{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated}
	p, err := promote.New(testConfig(remote, branch, production), gateway,
		promote.WithTokenGenerator(staticTokens("feedface")))
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomePromoted, result.Outcome())
	rec := result.Records[0]
	assert.Equal(t, "promote-production-feedface", rec.Branch)
	assert.Equal(t, 1, rec.RequestID)

	// exactly one request, carrying the token and targeting the base line
	if assert.Len(t, gateway.requests, 1) {
		req := gateway.requests[0]
		assert.Equal(t, "promote-production-feedface", req.Head)
		assert.Equal(t, branch, req.Base)
		assert.Contains(t, req.Body, "feedface")
		assert.Contains(t, req.Body, testRevision)
	}
	assert.Equal(t, "release-owner", gateway.assigned[1])

	// the branch exists upstream; the protected subtree does not move
	assert.Contains(t, gittest.Branches(t, remote), "promote-production-feedface")
	assert.Equal(t, 1, gittest.RevCount(t, remote, branch))
	content, _ := gittest.ShowFile(t, remote, branch, "environments/production/deployment.yaml")
	assert.Equal(t, "replicas: 1\n", content)

	// the proposed state is on the branch
	proposed, ok := gittest.ShowFile(t, remote, rec.Branch, "environments/production/model.yaml")
	assert.True(t, ok)
	assert.Equal(t, modelFiles["model.yaml"], proposed)
}

// Scenario: the gateway fails after the branch push; the run reports a
// partial-success inconsistency naming the branch, and no assignment
// is attempted.
func TestReviewGatedCreateRequestFails(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{
		"environments/production/deployment.yaml": "replicas: 1\n",
	})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	gateway := &fakeGateway{createErr: fmt.Errorf("boom")}
	production := promote.Environment{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated}
	p, err := promote.New(testConfig(remote, branch, production), gateway,
		promote.WithTokenGenerator(staticTokens("deadbeef")))
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err == nil {
		t.Fatal("expected a partial-success error")
	}
	assert.True(t, promerr.IsPartial(err), "got: %v", err)

	var perr *promerr.Error
	assert.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Help, "promote-production-deadbeef")

	rec := result.Records[0]
	assert.Equal(t, "promote-production-deadbeef", rec.Branch)
	assert.Zero(t, rec.RequestID)
	assert.Empty(t, gateway.assigned)
	// the pushed branch is the detectable post-failure state
	assert.Contains(t, gittest.Branches(t, remote), "promote-production-deadbeef")
}

// Assignment failing leaves the request in place; the error names both
// the branch and the request so a human can pick it up.
func TestReviewGatedAssignmentFails(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{
		"environments/production/deployment.yaml": "replicas: 1\n",
	})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	gateway := &fakeGateway{assignErr: fmt.Errorf("no such user")}
	production := promote.Environment{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated}
	p, err := promote.New(testConfig(remote, branch, production), gateway)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err == nil {
		t.Fatal("expected a partial-success error")
	}
	assert.True(t, promerr.IsPartial(err), "got: %v", err)
	assert.Equal(t, 1, result.Records[0].RequestID)
	assert.Len(t, gateway.requests, 1)
}

// Re-running a differing production promotion opens a second branch
// with a distinct name rather than colliding with the first.
func TestReviewGatedBranchesDoNotCollide(t *testing.T) {
	remote, branch, cleanup := gittest.Repo(t, map[string]string{
		"environments/production/deployment.yaml": "replicas: 1\n",
	})
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	gateway := &fakeGateway{}
	production := promote.Environment{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated}
	p, err := promote.New(testConfig(remote, branch, production), gateway)
	if err != nil {
		t.Fatal(err)
	}

	first, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, first.Records[0].Branch, second.Records[0].Branch)
	branches := gittest.Branches(t, remote)
	assert.Contains(t, branches, first.Records[0].Branch)
	assert.Contains(t, branches, second.Records[0].Branch)
}

// An unchanged staging environment does not stop a differing
// production promotion: the two detections are independent.
func TestStagingNoOpDoesNotBlockProduction(t *testing.T) {
	seed := map[string]string{
		"environments/production/deployment.yaml": "replicas: 1\n",
	}
	for name, content := range modelFiles {
		seed["environments/staging/"+name] = content
	}
	remote, branch, cleanup := gittest.Repo(t, seed)
	defer cleanup()
	tree, cleanupTree := candidateTree(t, modelFiles)
	defer cleanupTree()

	gateway := &fakeGateway{}
	p, err := promote.New(testConfig(remote, branch,
		promote.Environment{Name: "staging", Path: "environments/staging", Strategy: promote.StrategyDirect},
		promote.Environment{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated},
	), gateway)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), tree, testRevision)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, promote.OutcomePromoted, result.Outcome())
	assert.False(t, result.Records[0].Changed)
	assert.True(t, result.Records[1].Changed)
	assert.Len(t, gateway.requests, 1)
}

func TestUnknownStrategyIsConfigError(t *testing.T) {
	cfg := promote.Config{
		StateStoreURL: "https://example.com/org/repo.git",
		Branch:        "main",
		Environments: []promote.Environment{
			{Name: "staging", Path: "environments/staging", Strategy: "rollout"},
		},
	}
	_, err := promote.New(cfg, nil)
	if err == nil {
		t.Fatal("expected config error")
	}
	assert.True(t, promerr.IsConfig(err), "got: %v", err)
}

// Storage paths naming anything other than a subtree of the state
// store are rejected before the engine clones or writes anything: a
// path climbing out of the working clone would otherwise hand its
// parent directory to the sync step's delete-and-replace.
func TestEscapingStoragePathIsConfigError(t *testing.T) {
	for _, badPath := range []string{
		"..",
		"../other",
		"environments/../..",
		"/etc",
		".",
	} {
		cfg := promote.Config{
			StateStoreURL: "https://example.com/org/repo.git",
			Branch:        "main",
			Environments: []promote.Environment{
				{Name: "staging", Path: badPath, Strategy: promote.StrategyDirect},
			},
		}
		_, err := promote.New(cfg, nil)
		if err == nil {
			t.Fatalf("expected config error for path %q", badPath)
		}
		assert.True(t, promerr.IsConfig(err), "path %q: got %v", badPath, err)
	}
}

func TestReviewGatedNeedsApprover(t *testing.T) {
	cfg := promote.Config{
		StateStoreURL: "https://example.com/org/repo.git",
		Branch:        "main",
		Environments: []promote.Environment{
			{Name: "production", Path: "environments/production", Strategy: promote.StrategyReviewGated},
		},
	}
	_, err := promote.New(cfg, &fakeGateway{})
	if err == nil {
		t.Fatal("expected config error")
	}
	assert.True(t, promerr.IsConfig(err), "got: %v", err)
}
