// Package stress drives a byte-buffer pool from many goroutines at once and
// checks that no buffer is ever observed by two owners.
package stress

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/compression"
	"github.com/ajitpratap0/lendpool/pkg/config"
	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/lockfree"
	"github.com/ajitpratap0/lendpool/pkg/metrics"
	"github.com/ajitpratap0/lendpool/pkg/observability"
)

const (
	// latencySampleEvery controls how often a cycle's latency is recorded.
	latencySampleEvery = 64

	// minDecodeCap floors the decompression cap; zstd measures frame windows
	// against it and never uses a window below 1 KiB.
	minDecodeCap = 64 << 10
)

// frame is a frozen payload in flight between a producer and a consumer.
type frame struct {
	data       bytespool.Bytes
	seed       byte
	compressed bool
}

type runner struct {
	bp    *bytespool.BytesPool
	cfg   config.StressConfig
	codec compression.Codec
	log   *zap.Logger

	queue *lockfree.MPMCQueue[frame]
	done  atomic.Bool

	lends      *metrics.ThroughputTracker
	latency    *metrics.LatencyTracker
	mismatches lockfree.AtomicCounter
	handedOff  lockfree.AtomicCounter
}

// Run lends, fills, freezes and releases buffers from bp on cfg.Workers
// goroutines. With cfg.Handoff the frozen buffers travel through a lock-free
// queue and are checked and released by consumer goroutines instead.
//
// Cancelling ctx stops producers between cycles; the partial report is
// returned together with the context error.
func Run(ctx context.Context, bp *bytespool.BytesPool, cfg config.StressConfig, log *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	algo, err := compression.ParseAlgorithm(cfg.Codec)
	if err != nil {
		return Report{}, err
	}
	decodeCap := int64(cfg.PayloadSize)
	if decodeCap < minDecodeCap {
		decodeCap = minDecodeCap
	}
	codec, err := compression.NewCodec(&compression.Config{
		Algorithm:           algo,
		Level:               compression.Fastest,
		MaxDecompressedSize: decodeCap,
	})
	if err != nil {
		return Report{}, err
	}
	defer codec.Close()

	r := &runner{
		bp:      bp,
		cfg:     cfg,
		codec:   codec,
		log:     log,
		lends:   metrics.NewThroughputTracker("lends"),
		latency: metrics.NewLatencyTracker(4096),
	}
	if cfg.Handoff {
		r.queue = lockfree.NewMPMCQueue[frame](cfg.QueueSize)
	}

	ctx, span := observability.StartSpan(ctx, nil, "stress.run")
	defer span.End()
	span.SetAttribute("pool", bp.Name())
	span.SetAttribute("workers", cfg.Workers)
	span.SetAttribute("handoff", cfg.Handoff)

	monitor := NewResourceMonitor()
	before := monitor.Sample()
	timer := metrics.NewTimer("stress.run")

	log.Info("stress run started",
		zap.String("pool", bp.Name()),
		zap.Int("workers", cfg.Workers),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("payload_size", cfg.PayloadSize),
		zap.Bool("handoff", cfg.Handoff),
		zap.String("codec", string(algo)))

	var producers, consumers conc.WaitGroup
	if cfg.Handoff {
		for c := 0; c < cfg.Workers; c++ {
			consumers.Go(r.consume)
		}
	}
	for w := 0; w < cfg.Workers; w++ {
		worker := w
		producers.Go(func() { r.produce(ctx, worker) })
	}
	producers.Wait()
	r.done.Store(true)
	consumers.Wait()

	duration := timer.Stop()
	report := Report{
		Pool:        bp.Name(),
		Workers:     cfg.Workers,
		Iterations:  cfg.Iterations,
		PayloadSize: cfg.PayloadSize,
		Handoff:     cfg.Handoff,
		Codec:       string(algo),
		Duration:    duration,
		Lends:       r.lends.Total(),
		HandedOff:   r.handedOff.Get(),
		Mismatches:  r.mismatches.Get(),
		LatencyP50:  r.latency.GetPercentile(50),
		LatencyP99:  r.latency.GetPercentile(99),
		Stats:       bp.Stats(),
		Before:      before,
		After:       monitor.Sample(),
		Canceled:    ctx.Err() != nil,
	}
	if secs := duration.Seconds(); secs > 0 {
		report.LendsPerSec = float64(report.Lends) / secs
	}

	span.SetAttribute("lends", report.Lends)
	span.SetAttribute("mismatches", report.Mismatches)

	log.Info("stress run finished",
		zap.Duration("duration", duration),
		zap.Uint64("lends", report.Lends),
		zap.Float64("lends_per_sec", report.LendsPerSec),
		zap.Uint64("mismatches", report.Mismatches),
		zap.Float64("hit_rate", report.Stats.HitRate()))

	if report.Canceled {
		err := errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "stress run canceled")
		span.RecordError(err)
		return report, err
	}
	if report.Mismatches > 0 {
		err := errors.New(errors.ErrorTypeData, "payload mismatches detected").
			WithDetail("mismatches", report.Mismatches)
		span.RecordError(err)
		return report, err
	}
	return report, nil
}

func (r *runner) produce(ctx context.Context, worker int) {
	for i := 0; i < r.cfg.Iterations; i++ {
		if ctx.Err() != nil {
			return
		}

		sampled := i%latencySampleEvery == 0
		var start time.Time
		if sampled {
			start = time.Now()
		}

		seed := byte(worker*31 + i)
		f, ok := r.build(seed, i)
		r.lends.Increment(1)
		if !ok {
			continue
		}

		if r.queue == nil {
			r.verify(f)
		} else if !r.enqueue(ctx, f) {
			f.data.Release()
			return
		}

		if sampled {
			r.latency.Record(time.Since(start))
		}
	}
}

// build lends a buffer, writes the payload for seed and freezes it.
func (r *runner) build(seed byte, iteration int) (frame, bool) {
	buf := r.bp.Lend()
	fill(buf, seed, r.cfg.PayloadSize)

	if !r.cfg.IsCompressionEnabled() {
		var data bytespool.Bytes
		if iteration%2 == 0 {
			data = buf.Freeze()
		} else {
			data = buf.FreezeRange(bytespool.Full())
		}
		return frame{data: data, seed: seed}, true
	}

	packed, err := compression.Pack(r.bp, r.codec, buf.Bytes())
	buf.Release()
	if err != nil {
		r.log.Warn("compress failed", zap.Error(err))
		r.mismatches.Increment()
		return frame{}, false
	}
	return frame{data: packed, seed: seed, compressed: true}, true
}

func (r *runner) enqueue(ctx context.Context, f frame) bool {
	for !r.queue.Enqueue(f) {
		if ctx.Err() != nil {
			return false
		}
		runtime.Gosched()
	}
	r.handedOff.Increment()
	return true
}

func (r *runner) consume() {
	for {
		f, ok := r.queue.Dequeue()
		if !ok {
			if !r.done.Load() {
				runtime.Gosched()
				continue
			}
			// Producers are finished; one more look catches their last frames.
			if f, ok = r.queue.Dequeue(); !ok {
				return
			}
		}
		r.verify(f)
	}
}

// verify checks a frame's content and releases it.
func (r *runner) verify(f frame) {
	defer f.data.Release()

	payload := f.data
	if f.compressed {
		unpacked, err := compression.Unpack(r.bp, r.codec, f.data.Bytes())
		if err != nil {
			r.log.Warn("decompress failed", zap.Error(err))
			r.mismatches.Increment()
			return
		}
		defer unpacked.Release()
		payload = unpacked
	}

	if !matches(payload.Bytes(), f.seed, r.cfg.PayloadSize) {
		r.mismatches.Increment()
		return
	}

	// A sub-view must see the same bytes as the whole.
	if n := payload.Len(); n > 1 {
		half := payload.Slice(bytespool.From(n / 2))
		ok := matchesFrom(half.Bytes(), f.seed, n/2)
		half.Release()
		if !ok {
			r.mismatches.Increment()
		}
	}
}

func fill(buf *bytespool.BytesMut, seed byte, size int) {
	buf.Grow(size)
	p := buf.AvailableBuffer()[:size]
	for i := range p {
		p[i] = pattern(seed, i)
	}
	buf.Append(p)
}

func pattern(seed byte, i int) byte {
	return seed + byte(i%64)
}

func matches(b []byte, seed byte, size int) bool {
	return len(b) == size && matchesFrom(b, seed, 0)
}

func matchesFrom(b []byte, seed byte, offset int) bool {
	for i, c := range b {
		if c != pattern(seed, offset+i) {
			return false
		}
	}
	return true
}
