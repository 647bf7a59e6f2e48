package main

import (
	"errors"
	"fmt"
	"time"

	"fitcoach/programgen/internal/api"
	"fitcoach/programgen/internal/calendar"
	"fitcoach/programgen/internal/domain"
	"fitcoach/programgen/internal/repository/mongo"
	"fitcoach/programgen/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profileFlags struct {
	owner       string
	coach       string
	name        string
	methodology string
	persona     string
	timeZone    string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Create or update the coach profile bound to an owner",
	Long: `Generation refuses to start without a coach profile for the (owner, coach) pair.
This command writes one; running it again updates the existing profile.`,
	RunE: runProfile,
}

var tokenFlags struct {
	user string
	role string
	ttl  time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token",
	Long:  `Signs a bearer token with the configured JWT secret. Roles: athlete, coach, operator.`,
	RunE:  runToken,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Advance every active program to today once",
	RunE:  runSync,
}

func init() {
	f := profileCmd.Flags()
	f.StringVar(&profileFlags.owner, "owner", "", "owner ID (required)")
	f.StringVar(&profileFlags.coach, "coach", "", "coach ID (required)")
	f.StringVar(&profileFlags.name, "name", "", "coach display name")
	f.StringVar(&profileFlags.methodology, "methodology", "", "coaching methodology notes")
	f.StringVar(&profileFlags.persona, "persona", "", "coaching voice key")
	f.StringVar(&profileFlags.timeZone, "tz", "UTC", "owner's IANA time zone")
	_ = profileCmd.MarkFlagRequired("owner")
	_ = profileCmd.MarkFlagRequired("coach")

	tf := tokenCmd.Flags()
	tf.StringVar(&tokenFlags.user, "user", "", "user ID (required)")
	tf.StringVar(&tokenFlags.role, "role", string(domain.RoleOperator), "token role")
	tf.DurationVar(&tokenFlags.ttl, "ttl", 0, "lifetime (defaults to jwt.expiration)")
	_ = tokenCmd.MarkFlagRequired("user")
}

func runProfile(cmd *cobra.Command, args []string) error {
	if calendar.LoadLocation(profileFlags.timeZone).String() != profileFlags.timeZone {
		return fmt.Errorf("unknown time zone %q", profileFlags.timeZone)
	}
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	profile := &domain.CoachProfile{
		OwnerID:     profileFlags.owner,
		CoachID:     profileFlags.coach,
		DisplayName: profileFlags.name,
		Methodology: profileFlags.methodology,
		PersonaKey:  profileFlags.persona,
		TimeZone:    profileFlags.timeZone,
	}
	if err := mongo.NewMongoCoachProfileRepository(e.db).Upsert(cmd.Context(), profile); err != nil {
		return err
	}
	e.logger.Info("coach profile saved", zap.String("ownerId", profile.OwnerID), zap.String("coachId", profile.CoachID))
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	role := domain.Role(tokenFlags.role)
	switch role {
	case domain.RoleAthlete, domain.RoleCoach, domain.RoleOperator:
	default:
		return fmt.Errorf("unknown role %q", tokenFlags.role)
	}
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()
	if e.cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured")
	}
	ttl := tokenFlags.ttl
	if ttl <= 0 {
		ttl = e.cfg.JWT.Expiration
	}
	tok, err := api.GenerateToken(e.cfg.JWT.Secret, tokenFlags.user, role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	// day sync never regenerates, so no generation service is wired
	svc := service.NewProgramService(mongo.NewMongoProgramRepository(e.db), nil, nil, nil, e.logger)
	n, err := svc.SyncCurrentDays(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "%d programs updated\n", n)
	return err
}
