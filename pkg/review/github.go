package review

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v28/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/modelops/promoter/pkg/git"
)

type github struct {
	client *gh.Client
	owner  string
	repo   string
}

// NewGithubGateway instantiates a gateway for the repository behind
// the given remote URL, authenticating with the provided OAuth token
// (the same secret used for the state store).
func NewGithubGateway(remoteURL, token string) (Gateway, error) {
	return newGateway(remoteURL, token, func(tc *http.Client) (*gh.Client, error) {
		return gh.NewClient(tc), nil
	})
}

// NewEnterpriseGithubGateway is NewGithubGateway against a GitHub
// Enterprise (or test) API endpoint instead of github.com.
func NewEnterpriseGithubGateway(apiBaseURL, remoteURL, token string) (Gateway, error) {
	return newGateway(remoteURL, token, func(tc *http.Client) (*gh.Client, error) {
		endpoint, err := enterpriseEndpoint(apiBaseURL)
		if err != nil {
			return nil, err
		}
		return gh.NewEnterpriseClient(endpoint, endpoint, tc)
	})
}

// enterpriseEndpoint normalizes a GitHub Enterprise base URL to the
// API root: enterprise instances serve the API under /api/v3/, so
// append it when the caller gave the bare host URL.
func enterpriseEndpoint(apiBaseURL string) (string, error) {
	u, err := url.Parse(apiBaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing enterprise API URL")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if !strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path += "api/v3/"
	}
	return u.String(), nil
}

func newGateway(remoteURL, token string, mkClient func(*http.Client) (*gh.Client, error)) (Gateway, error) {
	_, owner, repo, err := git.ParseURL(remoteURL)
	if err != nil {
		return nil, err
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client, err := mkClient(tc)
	if err != nil {
		return nil, err
	}
	return &github{
		client: client,
		owner:  owner,
		repo:   repo,
	}, nil
}

func (g *github) CreateRequest(ctx context.Context, req Request) (int, error) {
	pr, resp, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &gh.NewPullRequest{
		Title: gh.String(req.Title),
		Body:  gh.String(req.Body),
		Head:  gh.String(req.Head),
		Base:  gh.String(req.Base),
	})
	if err != nil {
		return 0, parseError(resp, err)
	}
	// Do not trust the response shape: a request we cannot identify
	// afterwards is useless for assignment and remediation.
	if pr == nil || pr.Number == nil {
		return 0, errors.New("change request created but response carried no identifier")
	}
	return *pr.Number, nil
}

func (g *github) AssignRequest(ctx context.Context, id int, assignee string) error {
	_, resp, err := g.client.Issues.AddAssignees(ctx, g.owner, g.repo, id, []string{assignee})
	if err != nil {
		return parseError(resp, err)
	}
	return nil
}

func parseError(resp *gh.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrap(err, "review gateway denied the request; check the token")
	case http.StatusNotFound:
		return errors.Wrap(err, "cannot find owner or repository at the review gateway")
	default:
		return errors.Wrap(err, fmt.Sprintf("review gateway returned %s", resp.Status))
	}
}
