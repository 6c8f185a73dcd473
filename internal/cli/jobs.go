package cli

import (
	"context"
	"fmt"
	"strings"

	"wevolve/internal/common"
	"wevolve/internal/normalize"
	"wevolve/internal/types"
	"wevolve/internal/upload"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [query]",
	Short: "Search job postings and manage saved jobs",
	Long: `Search job postings by title, company or skill. With --match the postings
are ranked against a resume: the given PDF, or the stored profile when the
value is "profile".

--save toggles a posting from the current results in the saved list, which is
kept across runs. --saved prints the saved list without calling the backend.`,
	Example: `  wevolve jobs golang
  wevolve jobs --match profile
  wevolve jobs --match resume.pdf --format markdown
  wevolve jobs golang --save job-42
  wevolve jobs --saved`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

// matchFromProfile is the --match value that ranks against the stored profile
const matchFromProfile = "profile"

var jobsFlags struct {
	match string
	save  []string
	saved bool
}

func init() {
	jobsCmd.Flags().StringVar(&jobsFlags.match, "match", "", `Rank postings against a resume PDF, or "profile"`)
	jobsCmd.Flags().StringSliceVar(&jobsFlags.save, "save", nil, "Toggle saving of job ids from the results")
	jobsCmd.Flags().BoolVar(&jobsFlags.saved, "saved", false, "List saved jobs")
	jobsCmd.MarkFlagsMutuallyExclusive("match", "saved")
	jobsCmd.MarkFlagsMutuallyExclusive("save", "saved")
}

// jobsQuery is what one jobs invocation asks for
type jobsQuery struct {
	query      string
	resumeText string
	match      bool
}

func runJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	if jobsFlags.saved {
		loadInput := func(ctx context.Context) (struct{}, error) { return struct{}{}, nil }
		operation := func(ctx context.Context, _ struct{}) (types.JobList, error) {
			return a.jobs.SavedJobs(), nil
		}
		return common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, nil)
	}

	loadInput := func(ctx context.Context) (jobsQuery, error) {
		q := jobsQuery{}
		if len(args) == 1 {
			q.query = strings.TrimSpace(args[0])
		}
		if jobsFlags.match == "" {
			if _, err := a.requireProfile(); err != nil {
				return jobsQuery{}, err
			}
			return q, nil
		}

		q.match = true
		text, err := resumeText(a, jobsFlags.match)
		if err != nil {
			return jobsQuery{}, err
		}
		q.resumeText = text
		return q, nil
	}

	logDetails := func(q jobsQuery, cfg common.CommandConfig) {
		a.logger.Info("Fetching job postings",
			"query", q.query,
			"match", q.match,
			"resume_chars", len(q.resumeText),
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, q jobsQuery) (types.JobList, error) {
		var (
			jobs []types.JobPosting
			err  error
		)
		if q.match {
			jobs, err = a.backend.MatchJobs(ctx, q.resumeText)
			if err == nil && q.query != "" {
				jobs = normalize.FilterJobs(jobs, q.query)
			}
		} else {
			jobs, err = a.backend.SearchJobs(ctx, q.query)
		}
		if err != nil {
			return types.JobList{}, err
		}
		a.jobs.SetJobs(q.query, jobs)

		for _, id := range jobsFlags.save {
			saved, err := a.jobs.ToggleSaveJob(id)
			if err != nil {
				return types.JobList{}, err
			}
			a.logger.Info("Saved jobs updated", "job_id", id, "saved", saved)
		}
		return a.jobs.Jobs(), nil
	}

	if err := common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}
	return nil
}

// resumeText reads the text to match against: the stored profile, or the
// text layer of a PDF after the upload checks.
func resumeText(a *app, source string) (string, error) {
	if source == matchFromProfile {
		profile, err := a.requireProfile()
		if err != nil {
			return "", err
		}
		return normalize.ResumeText(profile), nil
	}

	f, err := common.NewFileProcessor(a.logger).ReadResume(source)
	if err != nil {
		return "", err
	}
	if err := a.validator.Validate(f); err != nil {
		return "", err
	}
	return upload.NewPDFInspector().ExtractText(f.Content)
}
