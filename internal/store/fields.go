package store

import (
	"fmt"
	"maps"
	"slices"

	"wevolve/internal/errors"
	"wevolve/internal/types"
)

// applyField writes value into one field of p. Sequences are copied and nil
// sequences become empty so the profile invariant holds after any edit.
func applyField(p *types.CandidateProfile, field types.ProfileField, value any) error {
	switch field {
	case types.FieldName, types.FieldEmail, types.FieldPhone:
		v, ok := value.(string)
		if !ok {
			return invalidField(field, value)
		}
		switch field {
		case types.FieldName:
			p.Name = v
		case types.FieldEmail:
			p.Email = v
		default:
			p.Phone = v
		}

	case types.FieldSkills, types.FieldProjects:
		v, ok := value.([]string)
		if !ok {
			return invalidField(field, value)
		}
		v = slices.Clone(v)
		if v == nil {
			v = []string{}
		}
		if field == types.FieldSkills {
			p.Skills = v
		} else {
			p.Projects = v
		}

	case types.FieldEducation:
		v, ok := value.([]types.Education)
		if !ok {
			return invalidField(field, value)
		}
		tmp := types.CandidateProfile{Education: v}
		p.Education = tmp.Clone().Education

	case types.FieldExperience:
		v, ok := value.([]types.Experience)
		if !ok {
			return invalidField(field, value)
		}
		tmp := types.CandidateProfile{Experience: v}
		p.Experience = tmp.Clone().Experience

	case types.FieldConfidenceScores:
		v, ok := value.(map[string]float64)
		if !ok {
			return invalidField(field, value)
		}
		scores := make(map[string]float64, len(v))
		maps.Copy(scores, v)
		p.ConfidenceScores = scores

	default:
		return errors.NewValidationError(errors.ErrCodeUnknownField,
			fmt.Sprintf("unknown profile field %q", field), nil).WithContext("field", string(field))
	}
	return nil
}

func invalidField(field types.ProfileField, value any) error {
	return errors.NewValidationError(errors.ErrCodeInvalidField,
		fmt.Sprintf("invalid value for %s: got %T", field, value), nil).
		WithContext("field", string(field))
}
