package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	cgpa := 3.8
	p := EmptyProfile()
	p.Name = "Jane"
	p.Skills = []string{"Go"}
	p.Education = []Education{{Degree: "BSc", CGPA: &cgpa}}
	p.Experience = []Experience{{Title: "Engineer", Description: []string{"built things"}}}
	p.ConfidenceScores["name"] = 0.9

	c := p.Clone()
	c.Skills[0] = "Rust"
	*c.Education[0].CGPA = 2.0
	c.Experience[0].Description[0] = "changed"
	c.ConfidenceScores["name"] = 0.1

	assert.Equal(t, "Go", p.Skills[0])
	assert.Equal(t, 3.8, *p.Education[0].CGPA)
	assert.Equal(t, "built things", p.Experience[0].Description[0])
	assert.Equal(t, 0.9, p.ConfidenceScores["name"])
}

func TestParseProfileField(t *testing.T) {
	tests := []struct {
		in      string
		want    ProfileField
		wantErr bool
	}{
		{"name", FieldName, false},
		{"confidenceScores", FieldConfidenceScores, false},
		{"confidence_scores", FieldConfidenceScores, false},
		{"age", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProfileField(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name    string
		field   ProfileField
		raw     string
		want    any
		wantErr bool
	}{
		{"string", FieldEmail, `"jane@example.com"`, "jane@example.com", false},
		{"string wrong type", FieldName, `42`, "", true},
		{"skills", FieldSkills, `["Go","SQL"]`, []string{"Go", "SQL"}, false},
		{"null skills", FieldSkills, `null`, []string{}, false},
		{"experience description allocated", FieldExperience, `[{"title":"Dev"}]`,
			[]Experience{{Title: "Dev", Description: []string{}}}, false},
		{"confidence", FieldConfidenceScores, `{"name":0.5}`, map[string]float64{"name": 0.5}, false},
		{"education not array", FieldEducation, `{"degree":"BSc"}`, []Education{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.DecodeValue(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseText(t *testing.T) {
	v, err := FieldSkills.ParseText(" Go, ,SQL ,Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL", "Kubernetes"}, v)

	v, err = FieldName.ParseText("  Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", v)

	_, err = FieldExperience.ParseText("not json")
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	p := EmptyProfile()
	p.Phone = "555"
	p.Projects = []string{"wevolve"}

	assert.Equal(t, "555", p.Value(FieldPhone))
	assert.Equal(t, []string{"wevolve"}, p.Value(FieldProjects))
	assert.Nil(t, p.Value(ProfileField("age")))
}

func TestUploadPhase(t *testing.T) {
	for _, phase := range []UploadPhase{PhaseIdle, PhaseFailed} {
		assert.True(t, phase.AcceptsNewUpload(), phase)
		assert.False(t, phase.IsActive(), phase)
	}
	for _, phase := range []UploadPhase{PhaseValidating, PhaseUploading, PhaseNormalizing, PhaseComplete} {
		assert.False(t, phase.AcceptsNewUpload(), phase)
		assert.True(t, phase.IsActive(), phase)
	}
	assert.Equal(t, PhaseIdle, IdleSession().Phase)
}
