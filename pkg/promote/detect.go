package promote

import (
	"context"

	"github.com/modelops/promoter/pkg/descriptor"
	"github.com/modelops/promoter/pkg/git"
)

// detectChanges materializes the candidate descriptor into the
// environment's subtree of the working clone and reports which paths
// differ from the baseline (the cloned HEAD). The comparison is by
// content, so re-promoting byte-identical files reports nothing, and
// an environment path absent from the baseline reports every candidate
// file. Nothing is committed or pushed here.
func detectChanges(ctx context.Context, co *git.Checkout, envPath string, tree *descriptor.Tree) ([]string, error) {
	if err := tree.SyncTo(co.WorkPath(envPath)); err != nil {
		return nil, err
	}
	if err := co.Stage(ctx, envPath); err != nil {
		return nil, err
	}
	return co.StagedChanges(ctx, envPath)
}
