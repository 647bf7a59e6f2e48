package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRunnerStopped = errors.New("generation runner is not accepting runs")
	ErrQueueFull     = errors.New("generation queue is full")
	ErrRunNotFound   = errors.New("generation run not found")
	ErrInvalidRun    = errors.New("owner ID and coach ID are required")
)

// ProgramGenerator executes one pipeline run.
type ProgramGenerator interface {
	Run(ctx context.Context, trig pipeline.Trigger, report func(stage string)) (*pipeline.Result, error)
}

// GenerationRunner executes generation triggers in the background. Submit returns as soon as
// the run is recorded; the outcome is only visible through the run record.
type GenerationRunner interface {
	Start(ctx context.Context, workers int)
	Submit(ctx context.Context, trig pipeline.Trigger) (*domain.GenerationRun, error)
	GetRun(ctx context.Context, runID string) (*domain.GenerationRun, error)
	Stop()
}

type runJob struct {
	run  *domain.GenerationRun
	trig pipeline.Trigger
}

type generationRunner struct {
	generator ProgramGenerator
	runs      repository.GenerationRunRepository
	queueSize int
	queue     chan runJob
	ctx       context.Context
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
	now       func() time.Time
	logger    *zap.Logger
}

func NewGenerationRunner(generator ProgramGenerator, runs repository.GenerationRunRepository, queueSize int, logger *zap.Logger) GenerationRunner {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &generationRunner{
		generator: generator,
		runs:      runs,
		queueSize: queueSize,
		stopped:   true,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins the worker pool with the specified number of workers. ctx bounds every run.
func (r *generationRunner) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	r.queue = make(chan runJob, r.queueSize)
	r.stopped = false
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
}

// Stop stops accepting runs and waits for queued and running ones to finish.
func (r *generationRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *generationRunner) Submit(ctx context.Context, trig pipeline.Trigger) (*domain.GenerationRun, error) {
	// 1. Validate Inputs
	if trig.OwnerID == "" || trig.CoachID == "" {
		return nil, ErrInvalidRun
	}

	// 2. Record the run
	run := &domain.GenerationRun{
		ID:             uuid.NewString(),
		OwnerID:        trig.OwnerID,
		CoachID:        trig.CoachID,
		ConversationID: trig.ConversationID,
		Status:         domain.RunQueued,
		CreatedAt:      r.now().UTC(),
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	// 3. Queue it; the worker owns run from here on
	out := *run
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		r.fail(run, ErrRunnerStopped)
		return nil, ErrRunnerStopped
	}
	select {
	case r.queue <- runJob{run: run, trig: trig}:
	default:
		r.fail(run, ErrQueueFull)
		return nil, ErrQueueFull
	}
	r.logger.Info("generation run queued", zap.String("runId", out.ID), zap.String("ownerId", out.OwnerID))
	return &out, nil
}

func (r *generationRunner) GetRun(ctx context.Context, runID string) (*domain.GenerationRun, error) {
	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *generationRunner) worker() {
	defer r.wg.Done()
	for job := range r.queue {
		r.execute(job)
	}
}

func (r *generationRunner) execute(job runJob) {
	run := job.run
	log := r.logger.With(zap.String("runId", run.ID), zap.String("ownerId", run.OwnerID))

	started := r.now().UTC()
	run.Status = domain.RunRunning
	run.StartedAt = &started
	r.save(run)

	res, err := r.generator.Run(r.ctx, job.trig, func(stage string) {
		run.Stage = stage
		r.save(run)
	})

	finished := r.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = domain.RunFailed
		run.ErrorKind = string(pipeline.KindOf(err))
		run.Error = err.Error()
		var re *pipeline.RunError
		if errors.As(err, &re) {
			run.Issues = re.Issues
		}
		log.Error("generation run failed",
			zap.String("stage", run.Stage), zap.String("kind", run.ErrorKind), zap.Error(err))
	} else {
		run.Status = domain.RunSucceeded
		run.ProgramID = res.Program.ID
		log.Info("generation run succeeded",
			zap.String("programId", run.ProgramID), zap.Duration("took", finished.Sub(started)))
	}
	r.save(run)
}

func (r *generationRunner) fail(run *domain.GenerationRun, err error) {
	now := r.now().UTC()
	run.Status = domain.RunFailed
	run.ErrorKind = string(pipeline.KindStepFailed)
	run.Error = err.Error()
	run.FinishedAt = &now
	r.save(run)
}

// save persists the run record; a failed write is logged and ignored.
func (r *generationRunner) save(run *domain.GenerationRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.runs.Update(ctx, run); err != nil {
		r.logger.Warn("generation run record not saved",
			zap.String("kind", string(pipeline.KindNonCriticalSideEffect)),
			zap.String("runId", run.ID), zap.Error(err))
	}
}

var _ ProgramGenerator = (*pipeline.Pipeline)(nil)
