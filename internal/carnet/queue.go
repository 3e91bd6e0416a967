package carnet

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type job struct {
	ctx  context.Context
	img  []byte
	lang string
	done chan jobResult
}

type jobResult struct {
	text string
	conf float64
	err  error
}

// Queue bounds the number of OCR runs happening at once. Jobs that don't fit
// into the buffer are refused instead of piling up behind slow scans.
type Queue struct {
	engine  Engine
	jobs    chan *job
	running atomic.Int32
	workers int

	stop sync.Once
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewQueue wraps engine with a worker pool. Queue itself is an Engine.
func NewQueue(engine Engine, workers, size int) *Queue {
	workers = max(workers, 1)
	size = max(size, 0)

	zap.L().Debug("Initializing OCR queue", zap.Int("workers", workers), zap.Int("size", size))

	return &Queue{
		engine:  engine,
		jobs:    make(chan *job, size),
		workers: workers,
		quit:    make(chan struct{}),
	}
}

func (q *Queue) StartWorkerPool() {
	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop ends the workers after the job each of them is running. Jobs still
// buffered fail with ErrQueueStopped.
func (q *Queue) Stop() {
	q.stop.Do(func() {
		close(q.quit)
		q.wg.Wait()

		for {
			select {
			case j := <-q.jobs:
				q.running.Add(-1)
				j.done <- jobResult{err: ErrQueueStopped}
			default:
				return
			}
		}
	})
}

// Running returns how many jobs are queued or being processed
func (q *Queue) Running() int {
	return int(q.running.Load())
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.quit:
			return
		case j := <-q.jobs:
			q.run(j)
		}
	}
}

func (q *Queue) run(j *job) {
	defer q.running.Add(-1)

	// The caller gave up while the job was waiting
	if err := j.ctx.Err(); err != nil {
		j.done <- jobResult{err: err}
		return
	}

	text, conf, err := q.engine.ExtractText(j.ctx, j.img, j.lang)
	if err != nil {
		zap.L().Warn("OCR job finished with an error", zap.Error(err))
	}

	j.done <- jobResult{text: text, conf: conf, err: err}
}

// ExtractText enqueues the image and waits for the result or for ctx
func (q *Queue) ExtractText(ctx context.Context, img []byte, lang string) (string, float64, error) {
	select {
	case <-q.quit:
		return "", 0, ErrQueueStopped
	default:
	}

	// Buffered so a worker never blocks on a caller that already left
	j := &job{ctx: ctx, img: img, lang: lang, done: make(chan jobResult, 1)}

	q.running.Add(1)

	select {
	case q.jobs <- j:
		zap.L().Debug("New OCR job enqueued", zap.Int32("enqueued", q.running.Load()))
	default:
		q.running.Add(-1)
		return "", 0, ErrQueueFull
	}

	select {
	case r := <-j.done:
		return r.text, r.conf, r.err
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}
