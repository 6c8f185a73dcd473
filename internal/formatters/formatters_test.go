package formatters

import (
	"encoding/json"
	"testing"

	"wevolve/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView() types.ProfileView {
	p := types.EmptyProfile()
	p.Name = "Jane Doe"
	p.Email = "jane@example.com"
	p.Skills = []string{"Go", "SQL"}
	p.Experience = []types.Experience{{Title: "Engineer", Company: "Acme", Duration: "2020-2023", Description: []string{"Built APIs"}}}
	p.Education = []types.Education{{Degree: "BSc", Field: "CS", Institution: "MIT", Year: "2019"}}
	return types.ProfileView{
		Profile:      p,
		OverallScore: 85,
		Confidence:   map[string]string{"name": "high", "email": "medium"},
		PreviewURL:   "/preview/abc",
	}
}

func TestFormatProfileText(t *testing.T) {
	out, err := NewFormatterRegistry().Format(sampleView(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Name:  Jane Doe [high]")
	assert.Contains(t, out, "Email: jane@example.com [medium]")
	assert.Contains(t, out, "Phone: -")
	assert.Contains(t, out, "Overall confidence: 85%")
	assert.Contains(t, out, "  - Engineer at Acme (2020-2023)")
	assert.Contains(t, out, "      * Built APIs")
	assert.Contains(t, out, "  - BSc in CS, MIT, 2019")
	assert.Contains(t, out, "Source file: /preview/abc")
}

func TestFormatAcceptsPointers(t *testing.T) {
	view := sampleView()
	out, err := NewFormatterRegistry().Format(&view, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Jane Doe")
	assert.Contains(t, out, "| Email | jane@example.com | medium |")
}

func TestFormatJSONForAnyType(t *testing.T) {
	out, err := NewFormatterRegistry().Format(map[string]int{"a": 1}, "json")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded["a"])
}

func TestFormatUnknownFormat(t *testing.T) {
	_, err := NewFormatterRegistry().Format(sampleView(), "yaml")
	assert.Error(t, err)
}

func TestFormatSkillGap(t *testing.T) {
	resp := types.SkillGapResponse{
		Analysis: types.SkillGapAnalysis{
			MatchingSkills:              []string{"Go"},
			MissingSkills:               []string{"Kubernetes"},
			SkillGapPercentage:          50,
			ReadinessScore:              50,
			EstimatedLearningTimeMonths: 3,
			ConfidenceLevel:             "medium",
		},
		LearningRoadmap: []types.LearningPhase{{
			Phase: 1, DurationMonths: 3, Focus: "Containers", Priority: "high",
			SkillsToLearn: []string{"Kubernetes"},
			Resources:     []types.LearningResource{{Name: "K8s docs", Type: "docs", URL: "https://kubernetes.io"}},
		}},
	}

	text, err := NewFormatterRegistry().Format(resp, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Readiness: 50% (medium)")
	assert.Contains(t, text, "  + Go")
	assert.Contains(t, text, "  - Kubernetes")
	assert.Contains(t, text, "Phase 1 [high priority, 3.0 months]: Containers")

	md, err := NewFormatterRegistry().Format(resp, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "- [K8s docs](https://kubernetes.io) (docs)")
}

func TestFormatJobList(t *testing.T) {
	score := 0.72
	list := types.JobList{
		Query: "go",
		Jobs: []types.JobPosting{
			{JobID: "j1", Title: "Backend Engineer", Company: "Acme", Location: "Remote", SalaryRange: []int{100, 150}, MatchScore: &score},
			{JobID: "j2", Title: "SRE", Company: "Initech", Location: "NYC"},
		},
		Saved: []string{"j2"},
	}

	tests := []struct {
		format   string
		contains []string
	}{
		{"text", []string{`=== JOBS matching "go" (2) ===`, "  [j1] Backend Engineer at Acme, Remote", "    Salary: 100 - 150", "    Match: 72%", "* [j2] SRE at Initech, NYC"}},
		{"markdown", []string{"| yes | SRE | Initech | NYC |  |  |", "| Backend Engineer | Acme | Remote | 100 - 150 | 72% |"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := NewFormatterRegistry().Format(list, tt.format)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatSessionAndSaveResult(t *testing.T) {
	reg := NewFormatterRegistry()

	out, err := reg.Format(types.UploadSession{Phase: types.PhaseFailed, ErrorMessage: "Server Error: 500"}, "text")
	require.NoError(t, err)
	assert.Equal(t, "Upload: failed (0%)\nError: Server Error: 500\n", out)

	out, err = reg.Format(types.SaveProfileResult{Success: true, ProfileID: "p-1", Message: "ok"}, "text")
	require.NoError(t, err)
	assert.Equal(t, "Profile saved (id p-1): ok\n", out)
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}
