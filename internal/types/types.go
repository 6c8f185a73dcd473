package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// CandidateProfile is the normalized resume record shared by every page.
// Sequences are never nil once a profile has been produced by the normalizer.
type CandidateProfile struct {
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Phone            string             `json:"phone"`
	Skills           []string           `json:"skills"`
	Education        []Education        `json:"education"`
	Experience       []Experience       `json:"experience"`
	Projects         []string           `json:"projects"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// Education represents one education entry
type Education struct {
	Degree      string   `json:"degree"`
	Field       string   `json:"field"`
	Institution string   `json:"institution"`
	Year        string   `json:"year,omitempty"`
	CGPA        *float64 `json:"cgpa,omitempty"`
}

// Experience represents one work experience entry
type Experience struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Duration    string   `json:"duration"`
	Description []string `json:"description"`
}

// EmptyProfile returns a profile with every sequence allocated.
func EmptyProfile() CandidateProfile {
	return CandidateProfile{
		Skills:           []string{},
		Education:        []Education{},
		Experience:       []Experience{},
		Projects:         []string{},
		ConfidenceScores: map[string]float64{},
	}
}

// Clone returns a deep copy so callers can never alias store-owned data.
func (p CandidateProfile) Clone() CandidateProfile {
	out := CandidateProfile{
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		Skills:           cloneStrings(p.Skills),
		Projects:         cloneStrings(p.Projects),
		Education:        make([]Education, len(p.Education)),
		Experience:       make([]Experience, len(p.Experience)),
		ConfidenceScores: make(map[string]float64, len(p.ConfidenceScores)),
	}
	for i, edu := range p.Education {
		if edu.CGPA != nil {
			v := *edu.CGPA
			edu.CGPA = &v
		}
		out.Education[i] = edu
	}
	for i, exp := range p.Experience {
		exp.Description = cloneStrings(exp.Description)
		out.Experience[i] = exp
	}
	maps.Copy(out.ConfidenceScores, p.ConfidenceScores)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}

// ProfileField names a single replaceable field of CandidateProfile.
type ProfileField string

const (
	FieldName             ProfileField = "name"
	FieldEmail            ProfileField = "email"
	FieldPhone            ProfileField = "phone"
	FieldSkills           ProfileField = "skills"
	FieldEducation        ProfileField = "education"
	FieldExperience       ProfileField = "experience"
	FieldProjects         ProfileField = "projects"
	FieldConfidenceScores ProfileField = "confidenceScores"
)

// ProfileFields lists every field in display order.
var ProfileFields = []ProfileField{
	FieldName, FieldEmail, FieldPhone, FieldSkills,
	FieldEducation, FieldExperience, FieldProjects, FieldConfidenceScores,
}

// ParseProfileField accepts the canonical name and the wire name of confidence scores.
func ParseProfileField(name string) (ProfileField, error) {
	if name == "confidence_scores" {
		return FieldConfidenceScores, nil
	}
	for _, f := range ProfileFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown profile field %q", name)
}

// DecodeValue decodes a JSON value into the Go type held by the field.
func (f ProfileField) DecodeValue(raw json.RawMessage) (any, error) {
	var err error
	switch f {
	case FieldName, FieldEmail, FieldPhone:
		var v string
		err = json.Unmarshal(raw, &v)
		return v, wrapDecode(f, err)
	case FieldSkills, FieldProjects:
		var v []string
		err = json.Unmarshal(raw, &v)
		if v == nil {
			v = []string{}
		}
		return v, wrapDecode(f, err)
	case FieldEducation:
		var v []Education
		err = json.Unmarshal(raw, &v)
		if v == nil {
			v = []Education{}
		}
		return v, wrapDecode(f, err)
	case FieldExperience:
		var v []Experience
		err = json.Unmarshal(raw, &v)
		for i := range v {
			if v[i].Description == nil {
				v[i].Description = []string{}
			}
		}
		if v == nil {
			v = []Experience{}
		}
		return v, wrapDecode(f, err)
	case FieldConfidenceScores:
		var v map[string]float64
		err = json.Unmarshal(raw, &v)
		if v == nil {
			v = map[string]float64{}
		}
		return v, wrapDecode(f, err)
	}
	return nil, fmt.Errorf("unknown profile field %q", f)
}

// ParseText reads a value typed on a command line: plain text for scalars,
// a comma separated list for string sequences, JSON for everything else.
func (f ProfileField) ParseText(text string) (any, error) {
	switch f {
	case FieldName, FieldEmail, FieldPhone:
		return strings.TrimSpace(text), nil
	case FieldSkills, FieldProjects:
		items := []string{}
		for part := range strings.SplitSeq(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	default:
		return f.DecodeValue(json.RawMessage(text))
	}
}

func wrapDecode(f ProfileField, err error) error {
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", f, err)
	}
	return nil
}

// Value returns the current value of field f, or nil for an unknown field.
func (p CandidateProfile) Value(f ProfileField) any {
	switch f {
	case FieldName:
		return p.Name
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldSkills:
		return p.Skills
	case FieldEducation:
		return p.Education
	case FieldExperience:
		return p.Experience
	case FieldProjects:
		return p.Projects
	case FieldConfidenceScores:
		return p.ConfidenceScores
	}
	return nil
}
