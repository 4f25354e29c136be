// Package conductor drives generation jobs from queued to a terminal
// state.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"diagramgen/internal/constraints"
	"diagramgen/internal/domain"
	"diagramgen/internal/jobs"
	"diagramgen/internal/metadata"
	"diagramgen/internal/providers/render"
	"diagramgen/internal/routing"
	"diagramgen/internal/storage"
)

// Progress checkpoints per phase.
const (
	progressRouting    = 20
	progressGenerating = 60
	progressUploading  = 90
	progressDone       = 100
)

const sinkTimeout = 5 * time.Second

// Options wires the conductor's collaborators and tuning parameters.
type Options struct {
	Store    *jobs.Store
	Selector *routing.Selector
	Resolver *constraints.Resolver
	// Classifier may be nil; routing then skips the AI branch.
	Classifier routing.Classifier
	Renderers  map[domain.GenerationMethod]render.Renderer
	Storage    storage.ObjectStore
	Sink       metadata.Sink
	Logger     zerolog.Logger

	// Concurrency bounds how many jobs advance past queued at once.
	Concurrency int
	// RenderTimeouts caps each method's render call; zero means no
	// per-method deadline beyond the renderer's own client timeout.
	RenderTimeouts map[domain.GenerationMethod]time.Duration
	// CacheTTL enables the completed-result cache when positive.
	CacheTTL     time.Duration
	CacheMaxSize int
}

// Metrics is a point-in-time view of the conductor's counters.
type Metrics struct {
	Generated int64 `json:"generated"`
	Failed    int64 `json:"failed"`
	CacheHits int64 `json:"cache_hits"`
	Fallbacks int64 `json:"fallbacks"`
}

// Conductor owns the per-job state machine. Each submitted job runs on
// its own goroutine; a fixed slot pool provides backpressure, and all
// job state flows through the store's serialized transitions.
type Conductor struct {
	store      *jobs.Store
	selector   *routing.Selector
	resolver   *constraints.Resolver
	classifier routing.Classifier
	renderers  map[domain.GenerationMethod]render.Renderer
	storage    storage.ObjectStore
	sink       metadata.Sink
	cache      *resultCache
	logger     zerolog.Logger

	slots          chan struct{}
	renderTimeouts map[domain.GenerationMethod]time.Duration

	generated atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	fallbacks atomic.Int64

	wg sync.WaitGroup
}

// New validates the options and builds a conductor.
func New(opts Options) (*Conductor, error) {
	if opts.Store == nil || opts.Selector == nil || opts.Resolver == nil {
		return nil, errors.New("conductor: store, selector and resolver are required")
	}
	if opts.Storage == nil {
		return nil, errors.New("conductor: object storage is required")
	}
	if len(opts.Renderers) == 0 {
		return nil, errors.New("conductor: at least one renderer is required")
	}
	sink := opts.Sink
	if sink == nil {
		sink = metadata.NopSink{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Conductor{
		store:          opts.Store,
		selector:       opts.Selector,
		resolver:       opts.Resolver,
		classifier:     opts.Classifier,
		renderers:      opts.Renderers,
		storage:        opts.Storage,
		sink:           sink,
		cache:          newResultCache(opts.CacheTTL, opts.CacheMaxSize),
		logger:         opts.Logger,
		slots:          make(chan struct{}, concurrency),
		renderTimeouts: opts.RenderTimeouts,
	}, nil
}

// Submit validates the request, creates a queued job, and schedules its
// execution. It returns as soon as the job record exists; it never
// waits for generation. A validation failure means no job was created.
func (c *Conductor) Submit(ctx context.Context, req domain.DiagramRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}
	// Declared catalog types carry a minimum footprint that must hold
	// before any job exists. Unknown types are checked again once the
	// routing phase has resolved a concrete subtype.
	if err := c.resolver.ValidateGrid(req.DiagramType, req.Constraints.GridWidth, req.Constraints.GridHeight); err != nil {
		return "", err
	}

	jobID := c.store.Create(req)
	c.wg.Add(1)
	go c.run(jobID, req)

	c.logger.Info().
		Str("job_id", jobID).
		Str("diagram_type", req.DiagramType).
		Msg("conductor: job created")
	return jobID, nil
}

// Wait blocks until every in-flight job has reached a terminal state.
func (c *Conductor) Wait() {
	c.wg.Wait()
}

// Metrics returns the conductor's counters.
func (c *Conductor) Metrics() Metrics {
	return Metrics{
		Generated: c.generated.Load(),
		Failed:    c.failed.Load(),
		CacheHits: c.cacheHits.Load(),
		Fallbacks: c.fallbacks.Load(),
	}
}

// run is the single owner of one job's transitions.
func (c *Conductor) run(jobID string, req domain.DiagramRequest) {
	defer c.wg.Done()

	// Backpressure: the job stays queued until a slot frees up.
	c.slots <- struct{}{}
	defer func() { <-c.slots }()

	start := time.Now()
	ctx := context.Background()

	c.advance(jobID, domain.StageRouting, progressRouting)

	var hint *routing.Hint
	if c.classifier != nil && c.selector.NeedsHint(req.DiagramType, req.Method) {
		h, err := c.classifier.Classify(ctx, req.Content, req.DiagramType)
		if err != nil {
			c.logger.Debug().Err(err).Str("job_id", jobID).Msg("conductor: classifier unavailable")
		} else {
			hint = h
		}
	}
	sel := c.selector.Select(req.Content, req.DiagramType, req.Method, hint)
	if sel.Source == routing.SourceFallback {
		c.fallbacks.Add(1)
	}

	effective, err := c.resolver.Resolve(sel.Method, sel.Subtype, req.Constraints)
	if err != nil {
		c.fail(jobID, err.Error(), false)
		return
	}

	c.logger.Info().
		Str("job_id", jobID).
		Str("method", string(sel.Method)).
		Str("subtype", sel.Subtype).
		Str("source", string(sel.Source)).
		Float64("confidence", sel.Confidence).
		Msg("conductor: routed")

	if cached, ok := c.cache.Get(req); ok {
		cached.CacheHit = true
		cached.ElapsedMS = time.Since(start).Milliseconds()
		c.cacheHits.Add(1)
		c.complete(jobID, cached)
		return
	}

	c.advance(jobID, domain.StageGenerating, progressGenerating)

	renderer, ok := c.renderers[sel.Method]
	if !ok {
		c.fail(jobID, fmt.Sprintf("no renderer configured for method %s", sel.Method), false)
		return
	}

	renderCtx := ctx
	if timeout := c.renderTimeouts[sel.Method]; timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	artifact, err := renderer.Render(renderCtx, render.Request{
		Subtype:    sel.Subtype,
		Content:    req.Content,
		DataPoints: req.DataPoints,
		Theme:      req.Theme,
		Limits:     effective,
	})
	if err != nil {
		c.fail(jobID, err.Error(), renderRetryable(err))
		return
	}

	c.advance(jobID, domain.StageUploading, progressUploading)

	url, err := c.storage.Upload(ctx, artifact.Data, artifact.ContentType)
	if err != nil {
		// No public URL means no usable result; always worth retrying.
		c.fail(jobID, fmt.Sprintf("upload failed: %v", err), true)
		return
	}

	result := domain.JobResult{
		DiagramURL:       url,
		GenerationMethod: sel.Method,
		DiagramType:      sel.Subtype,
		ElapsedMS:        time.Since(start).Milliseconds(),
		Width:            artifact.Width,
		Height:           artifact.Height,
	}
	c.complete(jobID, result)
	c.cache.Put(req, result)
}

// advance moves a non-terminal job forward. Progress never decreases.
func (c *Conductor) advance(jobID, stage string, progress int) {
	err := c.store.Transition(jobID, func(j *domain.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = domain.JobStatusProcessing
		j.Stage = stage
		if progress > j.Progress {
			j.Progress = progress
		}
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("conductor: transition failed")
	}
}

func (c *Conductor) complete(jobID string, result domain.JobResult) {
	err := c.store.Transition(jobID, func(j *domain.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Progress = progressDone
		j.Result = &result
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("conductor: complete transition failed")
		return
	}
	c.generated.Add(1)
	c.recordOutcome(jobID)
}

func (c *Conductor) fail(jobID, message string, retryable bool) {
	err := c.store.Transition(jobID, func(j *domain.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = domain.JobStatusFailed
		j.Stage = domain.StageFailed
		j.Error = &domain.JobError{Message: message, Retryable: retryable}
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Msg("conductor: fail transition failed")
		return
	}
	c.failed.Add(1)
	c.logger.Error().
		Str("job_id", jobID).
		Bool("retryable", retryable).
		Str("error", message).
		Msg("conductor: job failed")
	c.recordOutcome(jobID)
}

// recordOutcome hands the terminal job to the metadata sink on a
// detached goroutine. Sink failures are logged and discarded; they can
// never alter the job's outcome.
func (c *Conductor) recordOutcome(jobID string) {
	job, err := c.store.Get(jobID)
	if err != nil {
		return
	}
	summary := domain.JobSummary{
		JobID:       job.ID,
		SessionID:   job.Request.SessionID,
		Status:      job.Status,
		DiagramType: job.Request.DiagramType,
		CompletedAt: job.CompletedAt,
	}
	if job.Result != nil {
		summary.GenerationMethod = job.Result.GenerationMethod
		summary.DiagramType = job.Result.DiagramType
		summary.DiagramURL = job.Result.DiagramURL
		summary.ElapsedMS = job.Result.ElapsedMS
		summary.CacheHit = job.Result.CacheHit
	}
	if job.Error != nil {
		summary.ErrorMessage = job.Error.Message
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := c.sink.Record(ctx, summary); err != nil {
			c.logger.Warn().Err(err).Str("job_id", summary.JobID).Msg("conductor: metadata record failed")
		}
	}()
}

// renderRetryable maps renderer failures onto the retry policy: only
// timeouts are worth retrying.
func renderRetryable(err error) bool {
	var re *domain.RenderError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
