package git

import (
	promerr "github.com/modelops/promoter/pkg/errors"
)

func CloningError(url string, actual error) error {
	return &promerr.Error{
		Type: promerr.Server,
		Err:  actual,
		Help: `Could not clone the state-store repository

There was a problem cloning the git repository at

    ` + url + `

This may be because the credentials supplied do not grant read access,
or because the repository has been moved, deleted, or never existed.
Cloning is the first network operation of a promotion run, so nothing
has been written; it is safe to run the promotion again.
`,
	}
}

func PushError(url string, actual error) error {
	return &promerr.Error{
		Type: promerr.Server,
		Err:  actual,
		Help: `Problem committing and pushing to the state-store repository

There was a problem pushing to

    ` + url + `

If this has worked before, it is most likely a transient network or
authentication failure, and it is safe to run the promotion again. If
it has not worked before, check that the credentials supplied grant
write access to the repository.
`,
	}
}

func ConflictError(url string, actual error) error {
	return &promerr.Error{
		Type: promerr.Conflict,
		Err:  actual,
		Help: `The state-store repository advanced during the promotion

The push was rejected because the remote branch moved past the
revision this run cloned, most likely because a concurrent promotion
landed first. Re-run the whole promotion so it starts from the new
head; do not force-push.
`,
	}
}
