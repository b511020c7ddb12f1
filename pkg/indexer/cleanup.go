package indexer

import (
	"context"
	"log/slog"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
)

// cleanupGuard runs a compensating action when the enclosing operation fails.
// Its own failure is logged and otherwise swallowed.
type cleanupGuard struct {
	fn func(context.Context) error
}

func onError(fn func(context.Context) error) *cleanupGuard {
	return &cleanupGuard{fn: fn}
}

// run executes the action if opErr is non-nil. The action gets a context that
// survives cancellation of ctx, bounded by compensationTimeout.
func (g *cleanupGuard) run(ctx context.Context, opErr error, log *slog.Logger) {
	if opErr == nil || g == nil || g.fn == nil {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := g.fn(cctx); err != nil {
		cerr := edmerrors.New(edmerrors.ErrCodeCompensationFailed, "failed to delete document after failed create", err)
		log.Error("compensation failed", edmerrors.LogAttrs(cerr)...)
		return
	}
	log.Info("uploaded document deleted after failure")
}
