package server

import (
	"fmt"
	"os"

	"wevolve/internal/utils"
)

// displayServerInfo shows server configuration information on stderr
func (s *Server) displayServerInfo(addr string) {
	fmt.Fprintf(os.Stderr, "wevolve listening on http://%s\n", addr)
	s.displayEndpoints()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows the page routes
func (s *Server) displayEndpoints() {
	fmt.Fprintln(os.Stderr, "Available endpoints:")
	fmt.Fprintln(os.Stderr, "  GET    /                 - Upload entry")
	fmt.Fprintln(os.Stderr, "  POST   /upload           - Submit a resume (multipart field \"file\")")
	fmt.Fprintln(os.Stderr, "  GET    /session          - Upload progress")
	fmt.Fprintln(os.Stderr, "  POST   /session/cancel   - Cancel the upload in progress")
	fmt.Fprintln(os.Stderr, "  GET    /review           - Review the extracted profile")
	fmt.Fprintln(os.Stderr, "  PATCH  /review/{field}   - Correct one field")
	fmt.Fprintln(os.Stderr, "  POST   /review/save      - Save the profile to the backend")
	fmt.Fprintln(os.Stderr, "  DELETE /review           - Discard the profile")
	fmt.Fprintln(os.Stderr, "  GET    /gap-analysis     - Skill gap analysis")
	fmt.Fprintln(os.Stderr, "  GET    /jobs             - Job search")
	fmt.Fprintln(os.Stderr, "  GET    /health, /stats   - Health and statistics")
}

// displayRequestLimitInfo shows request and upload size limits
func (s *Server) displayRequestLimitInfo() {
	fmt.Fprintf(os.Stderr, "Upload limit: %s\n", utils.FormatFileSize(s.Validator.MaxSize()))
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(os.Stderr, "Request size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Fprintln(os.Stderr, "Request size limit: DISABLED")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(os.Stderr, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByIP {
			fmt.Fprintln(os.Stderr, "  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Fprintln(os.Stderr, "Rate limiting: DISABLED")
	}
}
