package cli

import (
	"fmt"

	"wevolve/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for upload, review, gap analysis and jobs",
	Long: `Start an HTTP server with the page routes of the application.

Available endpoints:
- GET  /: Upload entry with accepted types and size limit
- POST /upload: Submit a resume as the multipart field "file"
- GET  /session: Upload progress; POST /session/cancel cancels it
- GET  /review: Extracted profile; PATCH /review/{field} corrects one field
- POST /review/save: Save the profile to the backend; DELETE /review discards it
- GET  /gap-analysis: Skill gap analysis (?role= or ?skills=)
- GET  /jobs: Job search (?q=); POST /jobs/match, POST /jobs/{id}/save, GET /jobs/saved
- GET  /health: Health check endpoint (?probe=true calls the backend)
- GET  /stats: Server statistics and rate limiting info

Pages that need a profile redirect to / until one is uploaded. Add
?format=text or ?format=markdown for a plain rendering.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	// bound to server.port and server.host before config is loaded
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{serving: true})
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("Starting wevolve server",
		"version", Version,
		"backend", a.backend.BaseURL(),
		"store_driver", a.cfg.Store.Driver)

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			// edits from other processes are picked up on restart instead
			a.logger.Warn("Failed to start profile watcher", "error", err)
		}
	}

	srv := server.NewServer(a.cfg, Version, server.Deps{
		Store:         a.store,
		Jobs:          a.jobs,
		Backend:       a.backend,
		Uploads:       a.uploads,
		Validator:     a.validator,
		Watcher:       a.watcher,
		Observability: a.obs,
	}, a.logger)

	if err := srv.Start(cmd.Context()); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
