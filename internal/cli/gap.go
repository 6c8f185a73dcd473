package cli

import (
	"context"
	"fmt"

	"wevolve/internal/common"
	"wevolve/internal/types"

	"github.com/spf13/cobra"
)

var gapCmd = &cobra.Command{
	Use:   "gap",
	Short: "Compare the profile skills with a target role",
	Long: `Run a skill gap analysis for the stored profile. The backend reports the
matching and missing skills, a readiness score and an ordered learning
roadmap.

Older backends take a role id (--role), newer ones a list of target skills
(--target-skills). Which one is sent follows backend.skillGapMode.`,
	Example: `  wevolve gap --role backend-engineer
  wevolve gap --target-skills "Go,Kubernetes,PostgreSQL" --format markdown`,
	Args: cobra.NoArgs,
	RunE: runGap,
}

var gapFlags struct {
	role         string
	targetSkills []string
}

func init() {
	gapCmd.Flags().StringVar(&gapFlags.role, "role", "", "Target role id")
	gapCmd.Flags().StringSliceVar(&gapFlags.targetSkills, "target-skills", nil, "Comma separated target skills")
}

func runGap(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	loadInput := func(ctx context.Context) (types.SkillGapRequest, error) {
		profile, err := a.requireProfile()
		if err != nil {
			return types.SkillGapRequest{}, err
		}
		return a.backend.SkillGapRequest(profile.Skills, gapFlags.role, gapFlags.targetSkills)
	}

	logDetails := func(req types.SkillGapRequest, cfg common.CommandConfig) {
		a.logger.Info("Starting skill gap analysis",
			"current_skills", len(req.CurrentSkills),
			"target_role", req.TargetRoleID,
			"target_skills", len(req.TargetSkills),
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, req types.SkillGapRequest) (types.SkillGapResponse, error) {
		result, err := a.backend.AnalyzeSkillGap(ctx, req)
		if err != nil {
			return types.SkillGapResponse{}, err
		}
		return *result, nil
	}

	if err := common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to analyze skill gap: %w", err)
	}
	a.logger.Info("Skill gap analysis completed successfully")
	return nil
}
