package normalize

import (
	"encoding/json"

	"wevolve/internal/errors"
	"wevolve/internal/types"
)

// DecodeSkillGap reads an analysis reply. The analysis object is required;
// the roadmap may be absent.
func DecodeSkillGap(body []byte) (*types.SkillGapResponse, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: expected a JSON object", err)
	}

	rawAnalysis, ok := lookup(envelope, []string{"analysis", "gap_analysis"})
	if !ok {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: missing analysis", nil)
	}

	var resp types.SkillGapResponse
	if err := json.Unmarshal(rawAnalysis, &resp.Analysis); err != nil {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: malformed analysis", err)
	}

	if rawRoadmap, ok := lookup(envelope, []string{"learning_roadmap", "roadmap"}); ok {
		if err := json.Unmarshal(rawRoadmap, &resp.LearningRoadmap); err != nil {
			return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
				"Invalid response from backend: malformed roadmap", err)
		}
	}

	fillSkillGap(&resp)
	return &resp, nil
}

func fillSkillGap(resp *types.SkillGapResponse) {
	a := &resp.Analysis
	if a.MatchingSkills == nil {
		a.MatchingSkills = []string{}
	}
	if a.MissingSkills == nil {
		a.MissingSkills = []string{}
	}
	if a.ConfidenceLevel == "" {
		a.ConfidenceLevel = ReadinessLevel(a.ReadinessScore)
	}
	if resp.LearningRoadmap == nil {
		resp.LearningRoadmap = []types.LearningPhase{}
	}
	for i := range resp.LearningRoadmap {
		if resp.LearningRoadmap[i].SkillsToLearn == nil {
			resp.LearningRoadmap[i].SkillsToLearn = []string{}
		}
	}
}
