package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"wevolve/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ProfileView", &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", "ProfileView", &ProfileMarkdownFormatter{})
	registry.RegisterFormatter("text", "SkillGapResponse", &SkillGapTextFormatter{})
	registry.RegisterFormatter("markdown", "SkillGapResponse", &SkillGapMarkdownFormatter{})
	registry.RegisterFormatter("text", "JobList", &JobListTextFormatter{})
	registry.RegisterFormatter("markdown", "JobList", &JobListMarkdownFormatter{})
	registry.RegisterFormatter("text", "UploadSession", &SessionTextFormatter{})
	registry.RegisterFormatter("markdown", "UploadSession", &SessionTextFormatter{})
	registry.RegisterFormatter("text", "SaveProfileResult", &SaveResultTextFormatter{})
	registry.RegisterFormatter("markdown", "SaveProfileResult", &SaveResultTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
	}
	// Every type can be rendered as JSON
	if formatter, exists := fr.formatters["json"]["any"]; exists && (format == "json" || fr.formatters[format] != nil) {
		return formatter.Format(data)
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func deref(data any) any {
	switch v := data.(type) {
	case *types.ProfileView:
		if v != nil {
			return *v
		}
	case *types.SkillGapResponse:
		if v != nil {
			return *v
		}
	case *types.JobList:
		if v != nil {
			return *v
		}
	case *types.UploadSession:
		if v != nil {
			return *v
		}
	case *types.SaveProfileResult:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ProfileView:
		return "ProfileView"
	case types.SkillGapResponse:
		return "SkillGapResponse"
	case types.JobList:
		return "JobList"
	case types.UploadSession:
		return "UploadSession"
	case types.SaveProfileResult:
		return "SaveProfileResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ProfileTextFormatter renders the review page as plain text
type ProfileTextFormatter struct{}

func (ptf *ProfileTextFormatter) Format(data any) (string, error) {
	view, ok := data.(types.ProfileView)
	if !ok {
		return "", fmt.Errorf("expected ProfileView, got %T", data)
	}
	p := view.Profile

	var output strings.Builder
	output.WriteString("=== CANDIDATE PROFILE ===\n")
	fmt.Fprintf(&output, "Name:  %s%s\n", orDash(p.Name), badge(view, "name"))
	fmt.Fprintf(&output, "Email: %s%s\n", orDash(p.Email), badge(view, "email"))
	fmt.Fprintf(&output, "Phone: %s%s\n", orDash(p.Phone), badge(view, "phone"))
	fmt.Fprintf(&output, "Overall confidence: %d%%\n\n", view.OverallScore)

	fmt.Fprintf(&output, "Skills (%d)%s:\n", len(p.Skills), badge(view, "skills"))
	writeList(&output, p.Skills, "  - ")

	output.WriteString("\nExperience:\n")
	if len(p.Experience) == 0 {
		output.WriteString("  (none)\n")
	}
	for _, exp := range p.Experience {
		fmt.Fprintf(&output, "  - %s at %s", orDash(exp.Title), orDash(exp.Company))
		if exp.Duration != "" {
			fmt.Fprintf(&output, " (%s)", exp.Duration)
		}
		output.WriteString("\n")
		writeList(&output, exp.Description, "      * ")
	}

	output.WriteString("\nEducation:\n")
	if len(p.Education) == 0 {
		output.WriteString("  (none)\n")
	}
	for _, edu := range p.Education {
		fmt.Fprintf(&output, "  - %s\n", educationLine(edu))
	}

	output.WriteString("\nProjects:\n")
	writeList(&output, p.Projects, "  - ")

	if view.PreviewURL != "" {
		fmt.Fprintf(&output, "\nSource file: %s\n", view.PreviewURL)
	}
	return output.String(), nil
}

func (ptf *ProfileTextFormatter) SupportedType() string {
	return "ProfileView"
}

// ProfileMarkdownFormatter renders the review page as markdown
type ProfileMarkdownFormatter struct{}

func (pmf *ProfileMarkdownFormatter) Format(data any) (string, error) {
	view, ok := data.(types.ProfileView)
	if !ok {
		return "", fmt.Errorf("expected ProfileView, got %T", data)
	}
	p := view.Profile

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n\n", orDash(p.Name))
	fmt.Fprintf(&output, "**Overall confidence:** %d%%\n\n", view.OverallScore)
	output.WriteString("| Field | Value | Confidence |\n")
	output.WriteString("|-------|-------|------------|\n")
	fmt.Fprintf(&output, "| Email | %s | %s |\n", orDash(p.Email), levelOrDash(view, "email"))
	fmt.Fprintf(&output, "| Phone | %s | %s |\n\n", orDash(p.Phone), levelOrDash(view, "phone"))

	output.WriteString("## Skills\n\n")
	writeList(&output, p.Skills, "- ")

	output.WriteString("\n## Experience\n\n")
	for _, exp := range p.Experience {
		fmt.Fprintf(&output, "### %s, %s\n", orDash(exp.Title), orDash(exp.Company))
		if exp.Duration != "" {
			fmt.Fprintf(&output, "*%s*\n", exp.Duration)
		}
		output.WriteString("\n")
		writeList(&output, exp.Description, "- ")
		output.WriteString("\n")
	}

	output.WriteString("## Education\n\n")
	for _, edu := range p.Education {
		fmt.Fprintf(&output, "- %s\n", educationLine(edu))
	}

	output.WriteString("\n## Projects\n\n")
	writeList(&output, p.Projects, "- ")

	return output.String(), nil
}

func (pmf *ProfileMarkdownFormatter) SupportedType() string {
	return "ProfileView"
}

// SkillGapTextFormatter renders a gap analysis as plain text
type SkillGapTextFormatter struct{}

func (sgf *SkillGapTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.SkillGapResponse)
	if !ok {
		return "", fmt.Errorf("expected SkillGapResponse, got %T", data)
	}
	a := result.Analysis

	var output strings.Builder
	output.WriteString("=== SKILL GAP ANALYSIS ===\n")
	fmt.Fprintf(&output, "Readiness: %.0f%% (%s)\n", a.ReadinessScore, a.ConfidenceLevel)
	fmt.Fprintf(&output, "Gap: %.0f%%\n", a.SkillGapPercentage)
	fmt.Fprintf(&output, "Estimated learning time: %.1f months\n\n", a.EstimatedLearningTimeMonths)

	output.WriteString("Matching skills:\n")
	writeList(&output, a.MatchingSkills, "  + ")
	output.WriteString("\nMissing skills:\n")
	writeList(&output, a.MissingSkills, "  - ")

	output.WriteString("\n=== LEARNING ROADMAP ===\n")
	if len(result.LearningRoadmap) == 0 {
		output.WriteString("(no roadmap returned)\n")
	}
	for _, phase := range result.LearningRoadmap {
		fmt.Fprintf(&output, "Phase %d [%s priority, %.1f months]: %s\n",
			phase.Phase, orDash(phase.Priority), phase.DurationMonths, orDash(phase.Focus))
		if len(phase.SkillsToLearn) > 0 {
			fmt.Fprintf(&output, "  Skills: %s\n", strings.Join(phase.SkillsToLearn, ", "))
		}
		if phase.Reasoning != "" {
			fmt.Fprintf(&output, "  Why: %s\n", phase.Reasoning)
		}
		for _, res := range phase.Resources {
			fmt.Fprintf(&output, "  * %s (%s) %s\n", res.Name, res.Type, res.URL)
		}
	}
	return output.String(), nil
}

func (sgf *SkillGapTextFormatter) SupportedType() string {
	return "SkillGapResponse"
}

// SkillGapMarkdownFormatter renders a gap analysis as markdown
type SkillGapMarkdownFormatter struct{}

func (sgm *SkillGapMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.SkillGapResponse)
	if !ok {
		return "", fmt.Errorf("expected SkillGapResponse, got %T", data)
	}
	a := result.Analysis

	var output strings.Builder
	output.WriteString("# Skill Gap Analysis\n\n")
	fmt.Fprintf(&output, "**Readiness:** %.0f%% (%s)\n\n", a.ReadinessScore, a.ConfidenceLevel)
	fmt.Fprintf(&output, "**Estimated learning time:** %.1f months\n\n", a.EstimatedLearningTimeMonths)

	output.WriteString("## Matching Skills\n\n")
	writeList(&output, a.MatchingSkills, "- ")
	output.WriteString("\n## Missing Skills\n\n")
	writeList(&output, a.MissingSkills, "- ")

	output.WriteString("\n## Learning Roadmap\n\n")
	for _, phase := range result.LearningRoadmap {
		fmt.Fprintf(&output, "### Phase %d: %s\n\n", phase.Phase, orDash(phase.Focus))
		fmt.Fprintf(&output, "- Priority: %s\n", orDash(phase.Priority))
		fmt.Fprintf(&output, "- Duration: %.1f months\n", phase.DurationMonths)
		if len(phase.SkillsToLearn) > 0 {
			fmt.Fprintf(&output, "- Skills: %s\n", strings.Join(phase.SkillsToLearn, ", "))
		}
		for _, res := range phase.Resources {
			fmt.Fprintf(&output, "- [%s](%s) (%s)\n", res.Name, res.URL, res.Type)
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (sgm *SkillGapMarkdownFormatter) SupportedType() string {
	return "SkillGapResponse"
}

// JobListTextFormatter renders job postings as plain text
type JobListTextFormatter struct{}

func (jtf *JobListTextFormatter) Format(data any) (string, error) {
	list, ok := data.(types.JobList)
	if !ok {
		return "", fmt.Errorf("expected JobList, got %T", data)
	}

	var output strings.Builder
	if list.Query != "" {
		fmt.Fprintf(&output, "=== JOBS matching %q (%d) ===\n", list.Query, len(list.Jobs))
	} else {
		fmt.Fprintf(&output, "=== JOBS (%d) ===\n", len(list.Jobs))
	}
	if len(list.Jobs) == 0 {
		output.WriteString("No jobs found.\n")
	}
	for _, job := range list.Jobs {
		marker := " "
		if slices.Contains(list.Saved, job.JobID) {
			marker = "*"
		}
		fmt.Fprintf(&output, "%s [%s] %s at %s, %s\n", marker, job.JobID, orDash(job.Title), orDash(job.Company), orDash(job.Location))
		if s := salary(job.SalaryRange); s != "" {
			fmt.Fprintf(&output, "    Salary: %s\n", s)
		}
		if len(job.RequiredSkills) > 0 {
			fmt.Fprintf(&output, "    Skills: %s\n", strings.Join(job.RequiredSkills, ", "))
		}
		if job.MatchScore != nil {
			fmt.Fprintf(&output, "    Match: %.0f%%\n", *job.MatchScore*100)
		}
	}
	return output.String(), nil
}

func (jtf *JobListTextFormatter) SupportedType() string {
	return "JobList"
}

// JobListMarkdownFormatter renders job postings as a markdown table
type JobListMarkdownFormatter struct{}

func (jmf *JobListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(types.JobList)
	if !ok {
		return "", fmt.Errorf("expected JobList, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Jobs\n\n")
	output.WriteString("| Saved | Title | Company | Location | Salary | Match |\n")
	output.WriteString("|-------|-------|---------|----------|--------|-------|\n")
	for _, job := range list.Jobs {
		saved := ""
		if slices.Contains(list.Saved, job.JobID) {
			saved = "yes"
		}
		match := ""
		if job.MatchScore != nil {
			match = fmt.Sprintf("%.0f%%", *job.MatchScore*100)
		}
		fmt.Fprintf(&output, "| %s | %s | %s | %s | %s | %s |\n",
			saved, job.Title, job.Company, job.Location, salary(job.SalaryRange), match)
	}
	return output.String(), nil
}

func (jmf *JobListMarkdownFormatter) SupportedType() string {
	return "JobList"
}

// SessionTextFormatter renders the upload session
type SessionTextFormatter struct{}

func (stf *SessionTextFormatter) Format(data any) (string, error) {
	s, ok := data.(types.UploadSession)
	if !ok {
		return "", fmt.Errorf("expected UploadSession, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "Upload: %s (%d%%)\n", s.Phase, s.ProgressPercent)
	if s.FileName != "" {
		fmt.Fprintf(&output, "File: %s\n", s.FileName)
	}
	if s.ErrorMessage != "" {
		fmt.Fprintf(&output, "Error: %s\n", s.ErrorMessage)
	}
	return output.String(), nil
}

func (stf *SessionTextFormatter) SupportedType() string {
	return "UploadSession"
}

// SaveResultTextFormatter renders the remote save acknowledgement
type SaveResultTextFormatter struct{}

func (srf *SaveResultTextFormatter) Format(data any) (string, error) {
	r, ok := data.(types.SaveProfileResult)
	if !ok {
		return "", fmt.Errorf("expected SaveProfileResult, got %T", data)
	}
	status := "failed"
	if r.Success {
		status = "saved"
	}
	out := fmt.Sprintf("Profile %s", status)
	if r.ProfileID != "" {
		out += fmt.Sprintf(" (id %s)", r.ProfileID)
	}
	if r.Message != "" {
		out += ": " + r.Message
	}
	return out + "\n", nil
}

func (srf *SaveResultTextFormatter) SupportedType() string {
	return "SaveProfileResult"
}

func writeList(b *strings.Builder, items []string, prefix string) {
	if len(items) == 0 {
		b.WriteString(strings.TrimRight(prefix, "-+* ") + "  (none)\n")
		return
	}
	for _, item := range items {
		b.WriteString(prefix)
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func badge(view types.ProfileView, field string) string {
	if level, ok := view.Confidence[field]; ok {
		return fmt.Sprintf(" [%s]", level)
	}
	return ""
}

func levelOrDash(view types.ProfileView, field string) string {
	if level, ok := view.Confidence[field]; ok {
		return level
	}
	return "-"
}

func educationLine(edu types.Education) string {
	parts := []string{orDash(edu.Degree)}
	if edu.Field != "" {
		parts[0] += " in " + edu.Field
	}
	if edu.Institution != "" {
		parts = append(parts, edu.Institution)
	}
	if edu.Year != "" {
		parts = append(parts, edu.Year)
	}
	if edu.CGPA != nil {
		parts = append(parts, fmt.Sprintf("CGPA %.2f", *edu.CGPA))
	}
	return strings.Join(parts, ", ")
}

func salary(r []int) string {
	switch len(r) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%d", r[0])
	default:
		return fmt.Sprintf("%d - %d", r[0], r[1])
	}
}

// GlobalRegistry is the shared registry used by the CLI and HTTP handlers
var GlobalRegistry = NewFormatterRegistry()
