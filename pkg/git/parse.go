package git

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidGitURL = fmt.Errorf("invalid git URL")
)

// ParseURL extracts the host, owner and repo name from a state-store
// remote URL. The review gateway addresses the hosted repository by
// owner and name, and both must be derivable from the same URL the
// git transport clones from. Accepts scp-like (git@host:owner/repo)
// and scheme-style (https://host/owner/repo.git) forms.
func ParseURL(u string) (host, owner, repo string, err error) {
	if u == "" {
		return "", "", "", ErrInvalidGitURL
	}
	if strings.Contains(u, "://") {
		return parseSchemeURL(u)
	}
	return parseSCPURL(u)
}

func parseSchemeURL(u string) (host, owner, repo string, err error) {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" {
		return "", "", "", ErrInvalidGitURL
	}
	segments := strings.SplitN(strings.Trim(parsed.Path, "/"), "/", 2)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", "", ErrInvalidGitURL
	}
	return parsed.Host, segments[0], strings.TrimSuffix(segments[1], ".git"), nil
}

func parseSCPURL(u string) (host, owner, repo string, err error) {
	if i := strings.Index(u, "@"); i >= 0 {
		u = u[i+1:]
	}
	hostAndPath := strings.SplitN(u, ":", 2)
	if len(hostAndPath) != 2 || hostAndPath[0] == "" {
		return "", "", "", ErrInvalidGitURL
	}
	segments := strings.SplitN(hostAndPath[1], "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", "", ErrInvalidGitURL
	}
	return hostAndPath[0], segments[0], strings.TrimSuffix(segments[1], ".git"), nil
}
