package waveform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/logging"
)

const DefaultCacheSize = 16

// Pipeline turns audio buffers into waves. Each asset is decoded at most once
// at a time and its wave, failed or not, is cached by content hash.
type Pipeline struct {
	extractor *Extractor
	sched     frame.Scheduler
	cache     *lru.Cache[string, *Wave]
	inflight  singleflight.Group
	logger    *logging.Logger
}

func NewPipeline(extractor *Extractor, sched frame.Scheduler, cacheSize int, logger *logging.Logger) (*Pipeline, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Wave](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create wave cache: %w", err)
	}
	if sched == nil {
		sched = frame.Inline{}
	}
	return &Pipeline{
		extractor: extractor,
		sched:     sched,
		cache:     cache,
		logger:    logging.Or(logger).Named("pipeline"),
	}, nil
}

// Key identifies an audio asset by content.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Build returns the wave for data. Decode and render failures yield
// FailedWave; the only error is ctx being done, in which case nothing is
// cached. A caller that joined a decode whose starter gave up runs it again
// under its own ctx.
func (p *Pipeline) Build(ctx context.Context, data []byte) (*Wave, error) {
	key := Key(data)
	for {
		if w, ok := p.cache.Get(key); ok {
			return w, nil
		}

		v, err, shared := p.inflight.Do(key, func() (any, error) {
			if w, ok := p.cache.Get(key); ok {
				return w, nil
			}
			w, err := p.build(ctx, data)
			if err != nil {
				return nil, err
			}
			p.cache.Add(key, w)
			return w, nil
		})
		if err != nil {
			if ctx.Err() == nil && isDone(err) {
				p.logger.Debugw("in-flight decode cancelled, retrying", "key", key[:12])
				continue
			}
			return nil, err
		}
		if shared {
			p.logger.Debugw("joined in-flight decode", "key", key[:12])
		}
		return v.(*Wave), nil
	}
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (p *Pipeline) build(ctx context.Context, data []byte) (*Wave, error) {
	d := p.extractor.Extract(ctx, data)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d == nil {
		return FailedWave, nil
	}

	bm, err := RenderOnFrame(ctx, p.sched, d)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Errorw("render failed", "error", err)
		return FailedWave, nil
	}
	p.logger.Infow("waveform ready", "width", bm.Width, "duration", d.Duration)
	return &Wave{Bitmap: bm}, nil
}

// Cached reports whether a wave for data is already cached.
func (p *Pipeline) Cached(data []byte) bool {
	return p.cache.Contains(Key(data))
}
