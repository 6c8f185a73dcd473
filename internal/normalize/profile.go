package normalize

import (
	"encoding/json"
	"math"

	"wevolve/internal/types"
)

// FlatConfidenceKey is the entry a single aggregate confidence number becomes.
const FlatConfidenceKey = "overall"

// Normalize maps the payload onto the canonical profile using the detected
// schema. It never fails: absent or unreadable data degrades to empty values.
func Normalize(p *Payload) types.CandidateProfile {
	s := p.schema
	profile := types.EmptyProfile()

	profile.Name = scalar(p, s.Name)
	profile.Email = scalar(p, s.Email)
	profile.Phone = scalar(p, s.Phone)

	if raw, ok := p.lookup(s.Skills); ok {
		profile.Skills = asStringList(raw)
	}
	if raw, ok := p.lookup(s.Projects); ok {
		profile.Projects = asStringList(raw)
	}
	if raw, ok := p.lookup(s.Experience); ok {
		profile.Experience = experience(raw, s)
	}
	if raw, ok := p.lookup(s.Education); ok {
		profile.Education = education(raw, s)
	}
	profile.ConfidenceScores = confidence(p, s)

	return profile
}

// Profile decodes and normalizes in one step.
func Profile(body []byte) (types.CandidateProfile, error) {
	p, err := Decode(body)
	if err != nil {
		return types.CandidateProfile{}, err
	}
	return Normalize(p), nil
}

func scalar(p *Payload, aliases []string) string {
	raw, ok := p.lookup(aliases)
	if !ok {
		return ""
	}
	s, _ := asString(raw)
	return s
}

func experience(raw json.RawMessage, s *Schema) []types.Experience {
	out := []types.Experience{}
	for _, item := range asObjectList(raw) {
		exp := types.Experience{
			Title:       stringField(item, s.ExperienceTitle),
			Company:     stringField(item, s.ExperienceCompany),
			Duration:    stringField(item, s.ExperienceSpan),
			Description: []string{},
		}
		if details, ok := lookup(item, s.ExperienceDetails); ok {
			exp.Description = asLines(details)
		}
		out = append(out, exp)
	}
	return out
}

func education(raw json.RawMessage, s *Schema) []types.Education {
	out := []types.Education{}
	for _, item := range asObjectList(raw) {
		edu := types.Education{
			Degree:      stringField(item, s.EducationDegree),
			Field:       stringField(item, s.EducationField),
			Institution: stringField(item, s.EducationInstitution),
			Year:        stringField(item, s.EducationYear),
		}
		if cgpaRaw, ok := lookup(item, s.EducationCGPA); ok {
			if v, ok := asFloat(cgpaRaw); ok && !math.IsNaN(v) {
				edu.CGPA = &v
			}
		}
		out = append(out, edu)
	}
	return out
}

func confidence(p *Payload, s *Schema) map[string]float64 {
	if raw, ok := p.lookup(s.ConfidenceMap); ok {
		if out, ok := confidenceValues(raw); ok {
			return out
		}
	}
	if raw, ok := p.lookup(s.ConfidenceFlat); ok {
		if out, ok := confidenceValues(raw); ok {
			return out
		}
	}
	return map[string]float64{}
}

// confidenceValues reads a per-field object or a single aggregate number,
// whichever key it arrived under.
func confidenceValues(raw json.RawMessage) (map[string]float64, bool) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil && entries != nil {
		out := make(map[string]float64, len(entries))
		for key, value := range entries {
			if v, ok := asFloat(value); ok {
				out[key] = clampUnit(v)
			}
		}
		return out, true
	}
	if v, ok := asFloat(raw); ok {
		return map[string]float64{FlatConfidenceKey: clampUnit(v)}, true
	}
	return nil, false
}
