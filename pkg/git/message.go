package git

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	authorTrailer = "Promotion-author:"
	emailTrailer  = "Promotion-email:"
)

// CommitAction is the structured record encoded into every commit the
// engine makes. Consumers of repository history parse it back with
// ParseCommitMessage. All fields but Action may be empty.
type CommitAction struct {
	Action  string
	Message string
	Author  string
	Email   string
}

// EncodeMessage renders the action as a git commit message: the action
// kind is the subject line, the free-text message the body, and the
// actor metadata trailer lines (present even when empty, so that the
// schema is stable for parsers).
func (a CommitAction) EncodeMessage() string {
	var b strings.Builder
	b.WriteString(a.Action)
	b.WriteString("\n\n")
	if a.Message != "" {
		b.WriteString(a.Message)
		b.WriteString("\n\n")
	}
	b.WriteString(authorTrailer + " " + a.Author + "\n")
	b.WriteString(emailTrailer + " " + a.Email + "\n")
	return b.String()
}

// ParseCommitMessage decodes a message written by EncodeMessage.
func ParseCommitMessage(msg string) (CommitAction, error) {
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return CommitAction{}, errors.New("commit message has no action line")
	}
	action := CommitAction{Action: strings.TrimSpace(lines[0])}

	var body []string
	foundTrailer := false
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, authorTrailer):
			action.Author = strings.TrimSpace(strings.TrimPrefix(line, authorTrailer))
			foundTrailer = true
		case strings.HasPrefix(line, emailTrailer):
			action.Email = strings.TrimSpace(strings.TrimPrefix(line, emailTrailer))
			foundTrailer = true
		default:
			body = append(body, line)
		}
	}
	if !foundTrailer {
		return CommitAction{}, errors.New("commit message has no promotion trailers")
	}
	action.Message = strings.TrimSpace(strings.Join(body, "\n"))
	return action, nil
}
