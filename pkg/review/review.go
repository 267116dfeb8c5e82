// Package review deposits change requests with the review gateway: the
// hosted side of the state-store repository, where a human approves
// review-gated promotions.
package review

import (
	"context"
)

// Request is the reviewable proposal for a protected environment.
type Request struct {
	Title string
	Body  string
	// Head is the branch carrying the proposed state
	Head string
	// Base is the protected environment's base line
	Base string
}

// Gateway is what the promotion engine needs from the hosting side:
// open a change request, and put it in front of an approver. Neither
// call is idempotent; callers must not retry blindly.
type Gateway interface {
	// CreateRequest opens a change request and returns its identifier.
	CreateRequest(ctx context.Context, req Request) (int, error)
	// AssignRequest assigns the identity to an existing request.
	AssignRequest(ctx context.Context, id int, assignee string) error
}
