package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"wevolve/internal/common"
	"wevolve/internal/normalize"
	"wevolve/internal/store"
	"wevolve/internal/types"
	"wevolve/internal/upload"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [resume-file]",
	Short: "Upload a PDF resume and store the extracted profile",
	Long: `Upload a PDF resume to the parsing backend. The file is checked for type
and size first. Progress is shown on stderr while the backend works, and the
normalized profile is printed together with its confidence levels.

The profile replaces any stored profile and is kept for the profile, gap and
jobs commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var uploadFlags struct {
	quiet bool
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadFlags.quiet, "quiet", "q", false, "Do not show upload progress")
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cmdConfig, err := commandConfig(a.cfg)
	if err != nil {
		return err
	}

	fp := common.NewFileProcessor(a.logger)
	loadInput := func(ctx context.Context) (upload.File, error) {
		return fp.ReadResume(args[0])
	}

	logDetails := func(f upload.File, cfg common.CommandConfig) {
		a.logger.Info("Starting resume upload",
			"file_name", f.Name,
			"file_size", f.Size,
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, f upload.File) (types.ProfileView, error) {
		if !uploadFlags.quiet {
			stop := showProgress(a.store, os.Stderr)
			defer stop()
		}

		profile, err := a.uploads.Upload(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				a.uploads.Cancel()
			}
			return types.ProfileView{}, err
		}
		// the preview route only exists while serve is running
		return normalize.View(*profile, ""), nil
	}

	if err := common.RunCommand(cmd.Context(), a.logger, cmdConfig, loadInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to upload resume: %w", err)
	}
	a.logger.Info("Resume upload completed successfully")
	return nil
}

// showProgress draws the session phase and percentage on w until the
// returned func is called.
func showProgress(st *store.Store, w io.Writer) func() {
	var mu sync.Mutex
	last := ""
	unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		s := snap.Session
		var line string
		switch s.Phase {
		case types.PhaseValidating:
			line = fmt.Sprintf("Checking %s...", s.FileName)
		case types.PhaseUploading:
			line = fmt.Sprintf("Uploading %s... %d%%", s.FileName, s.ProgressPercent)
		case types.PhaseNormalizing:
			line = "Reading profile..."
		case types.PhaseComplete:
			line = "Done."
		case types.PhaseFailed:
			line = "Failed."
		default:
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if line == last {
			return
		}
		last = line
		fmt.Fprintf(w, "\r\033[K%s", line)
	})

	return func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if last != "" {
			fmt.Fprintln(w)
		}
	}
}
