package promote

import (
	"fmt"

	"github.com/pkg/errors"

	promerr "github.com/modelops/promoter/pkg/errors"
)

func configError(msg string) error {
	return &promerr.Error{
		Type: promerr.Config,
		Err:  errors.New(msg),
		Help: `The promotion configuration cannot be acted on

` + msg + `. Nothing has been written to the state store. Fix the
configuration and run the promotion again.
`,
	}
}

func unknownStrategyError(env, kind string) error {
	return &promerr.Error{
		Type: promerr.Config,
		Err:  fmt.Errorf("environment %s declares unknown promotion strategy %q", env, kind),
		Help: fmt.Sprintf(`Unknown promotion strategy

The environment %q declares the promotion strategy %q, which this
engine does not implement. Recognised strategies are %q and %q.
Nothing has been written to the state store.
`, env, kind, StrategyDirect, StrategyReviewGated),
	}
}

func requestNotCreatedError(env, branch string, actual error) error {
	return &promerr.Error{
		Type: promerr.Partial,
		Err:  errors.Wrapf(actual, "creating change request for %s", env),
		Help: fmt.Sprintf(`A promotion branch was pushed but no change request exists

The branch

    %s

was pushed to the state store for environment %q, but opening the
change request failed. Creating requests is not idempotent, so this
run will not retry. Either open a request for that branch by hand, or
delete the branch and run the promotion again.
`, branch, env),
	}
}

func requestUnassignedError(env, branch string, id int, actual error) error {
	return &promerr.Error{
		Type: promerr.Partial,
		Err:  errors.Wrapf(actual, "assigning change request #%d for %s", id, env),
		Help: fmt.Sprintf(`A change request exists but could not be assigned

Change request #%d (branch %s) was opened for environment %q, but
assigning an approver failed. The request is waiting unassigned;
assign it by hand rather than re-running the promotion, which would
open a duplicate request.
`, id, branch, env),
	}
}
