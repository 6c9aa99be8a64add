// Package admin provides maintenance operations on the document store.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/efile/internal/core"
)

// PruneTimeout is the maximum duration of one prune run.
const PruneTimeout = 30 * time.Second

// Pruner deletes stored documents that were parsed too long ago.
type Pruner struct {
	Store  core.Store
	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Prune deletes every stored document parsed more than maxAge ago and
// returns their summaries. With dryRun nothing is deleted. Deletion stops
// at the first failure; documents deleted before it are still returned.
func (p *Pruner) Prune(ctx context.Context, maxAge time.Duration, dryRun bool) ([]core.DocumentSummary, error) {
	if p.Store == nil {
		return nil, core.ErrStoreDisabled
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("prune: max age must be positive, got %s", maxAge)
	}

	ctx, cancel := context.WithTimeout(ctx, PruneTimeout)
	defer cancel()

	stored, err := p.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("prune: list: %w", err)
	}

	cutoff := p.now().Add(-maxAge)
	var pruned []core.DocumentSummary
	for _, doc := range stored {
		if !doc.ParsedAt.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := p.Store.Delete(ctx, doc.ID); err != nil {
				return pruned, fmt.Errorf("prune: delete %s: %w", doc.ID, err)
			}
		}
		pruned = append(pruned, doc)
	}

	p.logger().Info("stored documents pruned",
		"pruned", len(pruned),
		"kept", len(stored)-len(pruned),
		"cutoff", cutoff,
		"dry_run", dryRun,
	)
	return pruned, nil
}

func (p *Pruner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pruner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
