package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/mailrake/mailrake/nlp"
	"github.com/mailrake/mailrake/sanitize"
)

// Pool runs the CPU-bound entity extraction stage: a fixed number of workers
// pulling work items and emitting results with unordered completion. Workers
// never handle interrupts themselves; cancellation is observed through ctx
// only, at the coordinator's request.
type Pool struct {
	size          int
	loader        nlp.Loader
	sizeThreshold int
	logger        *slog.Logger
}

// NewPool sizes the pool; size <= 0 defaults to the host's logical core
// count.
func NewPool(size int, loader nlp.Loader, sizeThreshold int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if loader == nil {
		loader = nlp.Load
	}
	return &Pool{
		size:          size,
		loader:        loader,
		sizeThreshold: sizeThreshold,
		logger:        logger,
	}
}

// Run consumes items until the channel closes or ctx is cancelled, then
// closes out once every worker has drained.
func (p *Pool) Run(ctx context.Context, in <-chan WorkItem, out chan<- Result) {
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, in, out)
		}()
	}

	wg.Wait()
	close(out)
}

// worker holds a lazily-built model cache keyed by model name, so each model
// is constructed once per worker and never shared across workers.
func (p *Pool) worker(ctx context.Context, in <-chan WorkItem, out chan<- Result) {
	cache := make(map[string]nlp.Recognizer)

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}

			res := p.processItem(item, cache)

			select {
			case <-ctx.Done():
				return
			case out <- res:
			}
		}
	}
}

// processItem is the pure job function: sanitize the body, run the model,
// and return plain data either way.
func (p *Pool) processItem(item WorkItem, cache map[string]nlp.Recognizer) Result {
	res := Result{
		Filepath:            item.Filepath,
		MessageID:           item.MessageID,
		Date:                item.Date,
		ProcessingStartTime: time.Now().UTC(),
		Attachments:         item.Attachments,
	}

	body := sanitize.CleanupBody(item.Body, item.BodyType, p.sizeThreshold)

	recognizer, err := p.recognizer(item.ModelName, cache)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	spans, err := recognizer.Extract(body)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.Entities = spans
	res.ProcessingEndTime = time.Now().UTC()

	if item.IncludeContents {
		res.Body = body
		res.Headers = item.Headers
	}

	return res
}

func (p *Pool) recognizer(name string, cache map[string]nlp.Recognizer) (nlp.Recognizer, error) {
	if recognizer, ok := cache[name]; ok {
		return recognizer, nil
	}

	recognizer, err := p.loader(name)
	if err != nil {
		p.logger.Debug("model load failed in worker", "model", name, "err", err)
		return nil, err
	}
	cache[name] = recognizer
	return recognizer, nil
}
