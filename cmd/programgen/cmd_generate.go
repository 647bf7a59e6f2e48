package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/repository"
	"fitcoach/programgen/internal/repository/mongo"
	"fitcoach/programgen/internal/storage"
	"fitcoach/programgen/internal/vectorindex"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateFlags struct {
	owner        string
	coach        string
	conversation string
	requirements string
	dryRun       bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one program generation in the foreground",
	Long: `Runs the full generation pipeline for an owner and waits for the outcome.

Requirements are read from a JSON object file (--requirements), the same bag the
conversational front-end sends. With --dry-run the workout plan is kept in memory
and nothing is written to the database or the vector index.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.owner, "owner", "", "owner ID (required)")
	f.StringVar(&generateFlags.coach, "coach", "", "coach ID (required)")
	f.StringVar(&generateFlags.conversation, "conversation", "", "conversation ID")
	f.StringVarP(&generateFlags.requirements, "requirements", "r", "", "path to a JSON requirements file")
	f.BoolVar(&generateFlags.dryRun, "dry-run", false, "do not persist anything")
	_ = generateCmd.MarkFlagRequired("owner")
	_ = generateCmd.MarkFlagRequired("coach")
}

func readRequirements(path string) (domain.RequirementBag, error) {
	if path == "" {
		return domain.RequirementBag{}, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bag domain.RequirementBag
	if err := json.Unmarshal(body, &bag); err != nil {
		return nil, fmt.Errorf("requirements file %s: %w", path, err)
	}
	return bag, nil
}

// dryRunPrograms reads from the real repository but never writes.
type dryRunPrograms struct {
	repository.ProgramRepository
	logger *zap.Logger
}

func (d dryRunPrograms) Create(ctx context.Context, p *domain.Program) error {
	d.logger.Info("dry run: program not stored", zap.String("programId", p.ID))
	return nil
}

type dryRunIndex struct {
	vectorindex.Index
}

func (dryRunIndex) Upsert(ctx context.Context, rec vectorindex.Record) error { return nil }

func runGenerate(cmd *cobra.Command, args []string) error {
	bag, err := readRequirements(generateFlags.requirements)
	if err != nil {
		return err
	}
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	gen, err := generation.NewGeminiService(ctx, e.cfg.Generation, e.logger)
	if err != nil {
		return err
	}
	embedder, err := generation.NewGeminiEmbedder(ctx, e.cfg.Generation)
	if err != nil {
		return err
	}
	sqlIndex, err := vectorindex.Open(e.cfg.VectorIndex.Path, embedder, e.logger)
	if err != nil {
		return err
	}
	defer sqlIndex.Close()

	deps := pipeline.Deps{
		Generation: gen,
		Profiles:   mongo.NewMongoCoachProfileRepository(e.db),
		Programs:   mongo.NewMongoProgramRepository(e.db),
		Index:      sqlIndex,
	}
	if generateFlags.dryRun {
		deps.Objects = storage.NewMemoryStorage()
		deps.Programs = dryRunPrograms{ProgramRepository: deps.Programs, logger: e.logger}
		deps.Index = dryRunIndex{Index: sqlIndex}
	} else {
		deps.Objects, err = storage.NewS3Storage(ctx, e.cfg.S3, e.logger)
		if err != nil {
			return err
		}
	}

	started := time.Now()
	res, err := pipeline.New(deps, pipeline.OptionsFromConfig(e.cfg.Pipeline), e.logger).Run(ctx, pipeline.Trigger{
		OwnerID:        generateFlags.owner,
		CoachID:        generateFlags.coach,
		ConversationID: generateFlags.conversation,
		Requirements:   bag,
	}, func(stage string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%6.1fs] %s\n", time.Since(started).Seconds(), stage)
	})
	if err != nil {
		var re *pipeline.RunError
		if errors.As(err, &re) {
			for _, is := range re.Issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s %s %s: %s\n", is.Severity, is.Type, is.Field, is.Description)
			}
		}
		return err
	}

	out := cmd.OutOrStdout()
	p := res.Program
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(out, "  %d days, %d workouts, confidence %.2f\n", p.TotalDays, p.TotalWorkouts, p.Confidence)
	for _, ph := range p.Phases {
		fmt.Fprintf(out, "  days %3d-%3d  %s\n", ph.StartDay, ph.EndDay, ph.Name)
	}
	if res.Pruned != nil && len(res.Pruned.Removed) > 0 {
		fmt.Fprintf(out, "  pruned days %v\n", res.Pruned.Removed)
	}
	fmt.Fprintf(out, "  blob %s\n\n%s\n", res.Commit.BlobKey, p.Summary)
	return nil
}
