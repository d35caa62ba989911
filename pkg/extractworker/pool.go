// Package extractworker decouples claim extraction from the memory
// orchestrator's write path: step 9 of spec.md §4.E runs asynchronously,
// so the HTTP response returns before extraction (and its claim writes)
// complete.
package extractworker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/claimorch"
	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/extraction"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// maxClaimsPerMemory caps the number of claims the worker will create per
// extraction job (spec.md §4.E step 9: "cap at 20").
const maxClaimsPerMemory = 20

// Job is one asynchronous extraction unit: run extraction over NewText and
// attach any derived claims to NewMemoryID.
type Job struct {
	ProjectID   string
	SubjectID   string
	NewMemoryID string
	NewText     string
}

// Config configures the pool.
type Config struct {
	LLM        *extraction.LLM
	ClaimOrch  *claimorch.Service
	Embedder   embeddings.Embedder
	NumWorkers uint
	QueueSize  uint
	Logger     *zap.Logger
}

// Pool processes extraction jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) *Pool {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p
}

// Enqueue submits a job for processing. Returns true if enqueued, false if
// the queue is full, in which case the job is dropped and logged.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.logger.Error("extraction job not queued, queue full, job dropped",
			zap.String("memory_id", job.NewMemoryID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	for job := range p.queue {
		p.processJob(job)
	}
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	result := p.config.LLM.Extract(ctx, extraction.Request{Text: job.NewText, Force: true})

	type derived struct {
		predicate string
		value     string
	}
	seen := make(map[derived]bool)
	created := 0

	for _, mem := range result.Memories {
		for _, c := range mem.Claims {
			if created >= maxClaimsPerMemory {
				return
			}
			key := derived{predicate: c.Predicate, value: strings.ToLower(c.ObjectValue)}
			if seen[key] {
				continue
			}
			seen[key] = true

			var embedding []float32
			if p.config.Embedder != nil {
				if v, err := p.config.Embedder.Embed(ctx, fmt.Sprintf("%s: %s", c.Predicate, c.ObjectValue)); err == nil {
					embedding = v
				}
			}

			memID := job.NewMemoryID
			_, err := p.config.ClaimOrch.Create(ctx, claimorch.CreateInput{
				ProjectID:      job.ProjectID,
				SubjectID:      job.SubjectID,
				Predicate:      c.Predicate,
				ObjectValue:    c.ObjectValue,
				ClaimType:      c.ClaimType,
				Confidence:     &c.Confidence,
				SourceMemoryID: &memID,
				Embedding:      embedding,
			})
			if err != nil {
				p.logger.Error("async claim extraction failed",
					zap.String("memory_id", job.NewMemoryID),
					zap.String("predicate", c.Predicate),
					zap.Error(err),
				)
				continue
			}
			created++
		}
	}
}
