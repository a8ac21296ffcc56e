package pipeline

import (
	"context"

	"github.com/matzehuels/bufferopt/pkg/cache"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/observability"
	"github.com/matzehuels/bufferopt/pkg/render"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// RenderOptions selects the diagram produced by [Runner.Render].
type RenderOptions struct {
	Format   string
	Detailed bool
}

// Render draws the network of res with its critical path. Artifacts of
// results that came from [Runner.Execute] are cached.
func (r *Runner) Render(ctx context.Context, res *Result, opts RenderOptions) ([]byte, bool, error) {
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, false, err
	}
	var key string
	if res.Key != "" {
		key = r.Keyer.ArtifactKey(res.Key, cache.ArtifactKeyOpts{Format: opts.Format, Detailed: opts.Detailed})
		if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	tr, err := timing.Run(res.Network, res.Model)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "trace %s", res.Network.Name())
	}
	dot := render.ToDOT(res.Network, render.Options{Detailed: opts.Detailed, Trace: tr})
	data := []byte(dot)
	if opts.Format == FormatSVG {
		if data, err = render.RenderSVG(ctx, dot); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
	}

	if key != "" {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return data, false, nil
}
