package normalize

import "encoding/json"

// Schema is the alias table for one known backend response shape. Each list
// is tried in order and the first present key wins.
type Schema struct {
	Version string

	Name   []string
	Email  []string
	Phone  []string
	Skills []string

	Projects []string

	Experience        []string
	ExperienceTitle   []string
	ExperienceCompany []string
	ExperienceSpan    []string
	ExperienceDetails []string

	Education            []string
	EducationDegree      []string
	EducationField       []string
	EducationInstitution []string
	EducationYear        []string
	EducationCGPA        []string

	ConfidenceMap  []string
	ConfidenceFlat []string

	// markers are keys whose presence identifies this shape
	markers        []string
	experienceKeys []string
	educationKeys  []string
}

// Confidence keys are shared by every shape: backends mix them freely, so
// they take no part in detection.
var (
	confidenceMapKeys  = []string{"confidence_scores", "confidenceScores"}
	confidenceFlatKeys = []string{"confidence_score", "confidenceScore", "confidence"}
)

// CurrentSchema is the shape produced by the pydantic ParsedResume model.
var CurrentSchema = Schema{
	Version: "v2",

	Name:   []string{"name"},
	Email:  []string{"email"},
	Phone:  []string{"phone"},
	Skills: []string{"skills"},

	Projects: []string{"projects"},

	Experience:        []string{"experience"},
	ExperienceTitle:   []string{"title", "role"},
	ExperienceCompany: []string{"company"},
	ExperienceSpan:    []string{"duration"},
	ExperienceDetails: []string{"description"},

	Education:            []string{"education"},
	EducationDegree:      []string{"degree"},
	EducationField:       []string{"field"},
	EducationInstitution: []string{"institution"},
	EducationYear:        []string{"year"},
	EducationCGPA:        []string{"cgpa"},

	ConfidenceMap:  confidenceMapKeys,
	ConfidenceFlat: confidenceFlatKeys,

	markers:        []string{"confidence_scores", "projects"},
	experienceKeys: []string{"title"},
	educationKeys:  []string{"cgpa", "field"},
}

// LegacySchema is the early client shape: role instead of title, a string
// score instead of cgpa and a single confidenceScore number.
var LegacySchema = Schema{
	Version: "v1",

	Name:   []string{"name"},
	Email:  []string{"email"},
	Phone:  []string{"phone"},
	Skills: []string{"skills"},

	Projects: []string{"projects"},

	Experience:        []string{"experience"},
	ExperienceTitle:   []string{"role", "title"},
	ExperienceCompany: []string{"company"},
	ExperienceSpan:    []string{"duration"},
	ExperienceDetails: []string{"description"},

	Education:            []string{"education"},
	EducationDegree:      []string{"degree"},
	EducationField:       []string{"field", "major"},
	EducationInstitution: []string{"institution", "school"},
	EducationYear:        []string{"year"},
	EducationCGPA:        []string{"score", "gpa", "cgpa"},

	ConfidenceMap:  confidenceMapKeys,
	ConfidenceFlat: confidenceFlatKeys,

	markers:        []string{"confidenceScore", "confidenceScores"},
	experienceKeys: []string{"role"},
	educationKeys:  []string{"score", "gpa"},
}

// Schemas lists the known shapes. Ties in detection go to the first entry.
var Schemas = []*Schema{&CurrentSchema, &LegacySchema}

// detectSchema scores each known shape by how many of its marker keys occur.
func detectSchema(p *Payload) *Schema {
	best, bestScore := Schemas[0], 0
	for _, s := range Schemas {
		score := s.match(p)
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}

func (s *Schema) match(p *Payload) int {
	score := 0
	for _, key := range s.markers {
		if _, ok := p.fields[key]; ok {
			score++
		}
	}
	score += nestedMatches(p.fields, s.Experience, s.experienceKeys)
	score += nestedMatches(p.fields, s.Education, s.educationKeys)
	return score
}

func nestedMatches(fields map[string]json.RawMessage, container, keys []string) int {
	raw, ok := lookup(fields, container)
	if !ok {
		return 0
	}
	for _, item := range asObjectList(raw) {
		for _, key := range keys {
			if _, ok := item[key]; ok {
				return 1
			}
		}
	}
	return 0
}
