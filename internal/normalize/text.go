package normalize

import (
	"strings"

	"wevolve/internal/types"
)

// ResumeText flattens a profile into plain text for job matching when the
// original file is not at hand.
func ResumeText(p types.CandidateProfile) string {
	var b strings.Builder
	line := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}

	line(p.Name)
	if len(p.Skills) > 0 {
		line("Skills: " + strings.Join(p.Skills, ", "))
	}
	for _, exp := range p.Experience {
		line(strings.TrimSpace(exp.Title + " " + exp.Company + " " + exp.Duration))
		for _, d := range exp.Description {
			line(d)
		}
	}
	for _, edu := range p.Education {
		line(strings.TrimSpace(edu.Degree + " " + edu.Field + " " + edu.Institution))
	}
	for _, proj := range p.Projects {
		line(proj)
	}
	return b.String()
}
