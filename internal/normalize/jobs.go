package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"wevolve/internal/errors"
	"wevolve/internal/types"
)

// job posting aliases across the search mock, the pydantic model and the
// dashboard's own listing type
var (
	jobIDAliases       = []string{"job_id", "id"}
	jobTitleAliases    = []string{"title", "role"}
	jobCompanyAliases  = []string{"company", "company_name"}
	jobLocationAliases = []string{"location"}
	jobSalaryAliases   = []string{"salary_range", "salary"}
	jobSkillsAliases   = []string{"required_skills", "skills_required", "skills"}
	jobExpAliases      = []string{"experience_required", "experience"}
	jobTypeAliases     = []string{"job_type", "type"}
	jobPostedAliases   = []string{"posted_date", "posted"}
	jobDescAliases     = []string{"description"}
	jobScoreAliases    = []string{"match_score", "matchScore"}
)

// DecodeJobs reads a job list. Accepts a bare array or an object wrapping it
// under "jobs", "results" or "data".
func DecodeJobs(body []byte) ([]types.JobPosting, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: empty job list", nil)
	}

	raw := json.RawMessage(body)
	if body[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
				"Invalid response from backend: malformed JSON", err)
		}
		inner, ok := lookup(envelope, []string{"jobs", "results", "data", "matches"})
		if !ok {
			return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
				"Invalid response from backend: no job list in reply", nil)
		}
		raw = inner
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: expected a list of jobs", err)
	}

	jobs := make([]types.JobPosting, 0, len(items))
	for i, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		jobs = append(jobs, job(obj, i))
	}
	return jobs, nil
}

func job(obj map[string]json.RawMessage, index int) types.JobPosting {
	j := types.JobPosting{
		JobID:              stringField(obj, jobIDAliases),
		Title:              stringField(obj, jobTitleAliases),
		Company:            stringField(obj, jobCompanyAliases),
		Location:           stringField(obj, jobLocationAliases),
		ExperienceRequired: stringField(obj, jobExpAliases),
		JobType:            stringField(obj, jobTypeAliases),
		PostedDate:         stringField(obj, jobPostedAliases),
		Description:        stringField(obj, jobDescAliases),
		SalaryRange:        []int{},
		RequiredSkills:     []string{},
	}
	if j.JobID == "" {
		j.JobID = fmt.Sprintf("job-%d", index+1)
	}
	if raw, ok := lookup(obj, jobSalaryAliases); ok {
		j.SalaryRange = asIntList(raw)
	}
	if raw, ok := lookup(obj, jobSkillsAliases); ok {
		j.RequiredSkills = asStringList(raw)
	}
	if raw, ok := lookup(obj, jobScoreAliases); ok {
		if v, ok := asFloat(raw); ok {
			v = clampUnit(v)
			j.MatchScore = &v
		}
	}
	return j
}

// FilterJobs applies a case-insensitive query over title, company and skills.
// Used when the backend ignores the query parameter.
func FilterJobs(jobs []types.JobPosting, query string) []types.JobPosting {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return jobs
	}
	out := make([]types.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.Title), query) ||
			strings.Contains(strings.ToLower(j.Company), query) ||
			strings.Contains(strings.ToLower(j.Location), query) ||
			containsFold(j.RequiredSkills, query) {
			out = append(out, j)
		}
	}
	return out
}

func containsFold(items []string, needle string) bool {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), needle) {
			return true
		}
	}
	return false
}
