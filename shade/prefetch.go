package shade

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/dolly/glitch"
	"github.com/teranos/dolly/stage"
)

// DefaultPrefetchLimit bounds concurrent texture loads during Prefetch.
const DefaultPrefetchLimit = 4

// Prefetch warms the texture cache for every texture bound anywhere on the
// stage, loading at most limit textures concurrently. Individual load
// failures are recorded as glitches and do not abort the prefetch; the
// returned error reflects context cancellation only.
func (r *Resolver) Prefetch(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = DefaultPrefetchLimit
	}

	seen := make(map[string]bool)
	var assets []string
	r.st.Walk(func(path stage.Path, prim *stage.Prim) bool {
		if asset, ok := r.TextureAsset(prim); ok && !seen[asset] {
			seen[asset] = true
			assets = append(assets, asset)
		}
		return stage.Continue
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, asset := range assets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, _, err := r.LoadTexture(asset); err != nil {
				r.glitches.Record(glitch.NewFlicker("texture", "prefetch failed", glitch.Context{
					"asset": asset,
					"error": err.Error(),
				}))
			}
			return nil
		})
	}
	return g.Wait()
}
