// Package pipeline generates a multi-week training program from a coaching conversation's
// requirements.
//
// A run is a fixed sequence of steps: load requirements, structure phases, generate every phase's
// workouts concurrently, validate, then prune and normalize when the validator asks for it,
// summarize and commit. Runs are unattended; a failure is reported as a *RunError and nothing is
// written to the document store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/config"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/storage"
	"fitcoach/programgen/internal/vectorindex"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stages reported while a run progresses.
const (
	StageLoad       = "load"
	StageStructure  = "structure"
	StageGenerate   = "generate"
	StageValidate   = "validate"
	StagePrune      = "prune"
	StageNormalize  = "normalize"
	StageSummarize  = "summarize"
	StageCommit     = "commit"
	StageRegenerate = "regenerate"
)

// Options tune a pipeline.
type Options struct {
	WorkflowTimeout     time.Duration
	PruneTolerance      float64
	NormalizeThreshold  float64
	ContextExcerptLimit int
}

func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		WorkflowTimeout:     cfg.WorkflowTimeout,
		PruneTolerance:      cfg.PruneTolerance,
		NormalizeThreshold:  cfg.NormalizeConfidenceThreshold,
		ContextExcerptLimit: cfg.ContextExcerptLimit,
	}
}

// Deps are the collaborators of a pipeline. Index may be nil.
type Deps struct {
	Generation generation.Service
	Profiles   repository.CoachProfileRepository
	Programs   repository.ProgramRepository
	Objects    storage.ObjectStore
	Index      vectorindex.Index
}

// Result is a committed program.
type Result struct {
	Program    *domain.Program
	Templates  []domain.WorkoutTemplate
	Validation domain.ValidationResult
	Pruned     *PruneResult
	Normalized *NormalizeResult
	Commit     CommitResult
}

type Pipeline struct {
	loader     *Loader
	structurer *Structurer
	generator  *Generator
	validator  Validator
	pruner     *Pruner
	normalizer *Normalizer
	summarizer *Summarizer
	committer  *Committer
	opts       Options
	logger     *zap.Logger
}

func New(deps Deps, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		loader:     NewLoader(deps.Profiles, deps.Programs, deps.Index, opts.ContextExcerptLimit, logger),
		structurer: NewStructurer(deps.Generation, logger),
		generator:  NewGenerator(deps.Generation, logger),
		validator:  Validator{PruneTolerance: opts.PruneTolerance, NormalizeThreshold: opts.NormalizeThreshold},
		pruner:     NewPruner(deps.Generation, logger),
		normalizer: NewNormalizer(deps.Generation, logger),
		summarizer: NewSummarizer(deps.Generation, logger),
		committer:  NewCommitter(deps.Objects, deps.Programs, deps.Index, logger),
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one generation from trigger to commit. report, when set, is called as each
// stage starts.
func (p *Pipeline) Run(ctx context.Context, trig Trigger, report func(stage string)) (*Result, error) {
	if p.opts.WorkflowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.WorkflowTimeout)
		defer cancel()
	}
	enter := func(stage string) {
		if report != nil {
			report(stage)
		}
	}

	// 1. Requirements
	enter(StageLoad)
	req, err := p.loader.Load(ctx, trig)
	if err != nil {
		return nil, err
	}
	log := p.logger.With(zap.String("requirementsId", req.ID()), zap.String("ownerId", req.OwnerID()))

	// 2. Phases
	enter(StageStructure)
	st, err := p.structurer.Structure(ctx, req)
	if err != nil {
		return nil, err
	}
	d := newDraft(req, st)
	log = log.With(zap.String("programId", d.Program.ID))

	// 3. Workouts, one call per phase
	enter(StageGenerate)
	if err := p.generatePhases(ctx, req, d); err != nil {
		return nil, err
	}

	// 4. Validation, with the conditional repairs
	enter(StageValidate)
	ref := d.Program.WorkoutsRef
	res := &Result{Validation: p.validator.Validate(d)}
	if res.Validation.ShouldPrune {
		enter(StagePrune)
		pr, err := p.pruner.Prune(ctx, req.Coach(), d, res.Validation.TargetDays)
		if err != nil {
			return nil, err
		}
		if err := checkStorageRef(ref, d, StagePrune); err != nil {
			return nil, err
		}
		d.Confidences = append(d.Confidences, pr.Confidence)
		res.Pruned = &pr
		res.Validation = p.validator.Validate(d)
	}
	if res.Validation.ShouldNormalize || res.Validation.Confidence < p.opts.NormalizeThreshold {
		enter(StageNormalize)
		nr, err := p.normalizer.Normalize(ctx, req.Coach(), d)
		if err != nil {
			return nil, err
		}
		if err := checkStorageRef(ref, d, StageNormalize); err != nil {
			return nil, err
		}
		res.Normalized = &nr
		res.Validation = p.validator.Validate(d)
		if !nr.IsValid && len(nr.BlockingIssues()) > 0 {
			return nil, p.blocked(log, StageNormalize, append(nr.BlockingIssues(), res.Validation.BlockingIssues()...))
		}
	}
	if !res.Validation.IsValid {
		return nil, p.blocked(log, StageValidate, res.Validation.BlockingIssues())
	}

	prog := d.Program
	prog.TotalWorkouts = domain.CountWorkouts(d.Templates)
	prog.UpdateAdherence()
	prog.Confidence = res.Validation.Confidence
	prog.CurrentDay = calendar.CurrentDay(prog.StartDate, prog.PausedDuration, prog.TotalDays, req.Location(), time.Now())

	// 5. Summary
	enter(StageSummarize)
	summary, err := p.summarizer.Summarize(ctx, req.Coach(), d)
	if err != nil {
		return nil, err
	}
	prog.Summary = summary

	// 6. Persist
	enter(StageCommit)
	res.Commit, err = p.committer.Commit(ctx, d)
	if err != nil {
		return nil, err
	}
	res.Program = prog
	res.Templates = d.Templates

	log.Info("program generated",
		zap.Int("phases", len(prog.Phases)),
		zap.Int("workouts", prog.TotalWorkouts),
		zap.Int("trainingDays", res.Validation.TrainingDays),
		zap.Float64("confidence", prog.Confidence),
		zap.Bool("pruned", res.Pruned != nil),
		zap.Bool("normalized", res.Normalized != nil))
	return res, nil
}

// generatePhases fans out one generator call per phase and fans the outputs back in phase order.
// The first failure cancels the remaining calls and fails the run.
func (p *Pipeline) generatePhases(ctx context.Context, req *Requirements, d *Draft) error {
	phases := d.Program.Phases
	outputs := make([]PhaseOutput, len(phases))
	g, gctx := errgroup.WithContext(ctx)
	for i := range phases {
		i := i
		g.Go(func() error {
			out, err := p.generator.GeneratePhase(gctx, req, phases[i], phases)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, out := range outputs {
		d.Templates = append(d.Templates, out.Templates...)
		d.Confidences = append(d.Confidences, out.Confidence)
	}
	return nil
}

// checkStorageRef fails the run when a repair step moved the draft's storage reference away
// from the one allocated with the draft.
func checkStorageRef(want string, d *Draft, step string) error {
	if d.Program.WorkoutsRef == want {
		return nil
	}
	return &RunError{Kind: KindStepFailed, Step: step,
		Err: fmt.Errorf("%w: %q became %q", ErrStorageRefChanged, want, d.Program.WorkoutsRef)}
}

func (p *Pipeline) blocked(log *zap.Logger, step string, issues []domain.NormalizationIssue) error {
	log.Error("program blocked by validation", zap.String("step", step), zap.Int("issues", len(issues)))
	return &RunError{Kind: KindValidationBlocked, Step: step, Issues: issues, Err: ErrValidationBlocked}
}

func newDraft(req *Requirements, st Structure) *Draft {
	id := uuid.NewString()
	return &Draft{
		Program: &domain.Program{
			ID:                   id,
			OwnerID:              req.OwnerID(),
			CoachID:              req.CoachID(),
			ConversationID:       req.ConversationID(),
			Name:                 st.Name,
			Status:               domain.ProgramActive,
			StartDate:            req.StartDate(),
			TimeZone:             req.Coach().TimeZone,
			TotalDays:            req.TotalDays(),
			CurrentDay:           1,
			TrainingFrequency:    req.TrainingFrequency(),
			Phases:               st.Phases,
			TrainingGoals:        req.Goals(),
			EquipmentConstraints: req.Equipment(),
			WorkoutsRef:          storage.WorkoutPlanKey(req.OwnerID(), id),
		},
		Confidences: []float64{st.Confidence},
	}
}
