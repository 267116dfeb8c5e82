package git

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/whilp/git-urls"
)

// Remote points at the state-store repo.
type Remote struct {
	// URL is where we clone from, and push to
	URL string `json:"url"`
}

func (r Remote) SafeURL() string {
	u, err := giturls.Parse(r.URL)
	if err != nil {
		return fmt.Sprintf("<unparseable: %s>", r.URL)
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// Auth is the identity/secret pair used for both the state store and
// the review gateway. SSH remotes ignore it (the ambient SSH agent or
// GIT_SSH_COMMAND supplies credentials instead).
type Auth struct {
	User  string
	Token string
}

// WithAuth returns the remote URL with the credentials embedded, for
// http(s) remotes. Never log the result; use SafeURL for that.
func (r Remote) WithAuth(a Auth) string {
	if a.Token == "" {
		return r.URL
	}
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return r.URL
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	user := a.User
	if user == "" {
		user = "git"
	}
	u.User = url.UserPassword(user, a.Token)
	return u.String()
}
