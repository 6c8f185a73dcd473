package types

// JobPosting is a job returned by the search and match endpoints
type JobPosting struct {
	JobID              string   `json:"job_id"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Location           string   `json:"location"`
	SalaryRange        []int    `json:"salary_range"`
	RequiredSkills     []string `json:"required_skills"`
	ExperienceRequired string   `json:"experience_required"`
	JobType            string   `json:"job_type"`
	PostedDate         string   `json:"posted_date"`
	Description        string   `json:"description"`
	MatchScore         *float64 `json:"match_score,omitempty"`
}

// JobList wraps a set of postings together with the saved marker for display.
type JobList struct {
	Query string       `json:"query,omitempty"`
	Jobs  []JobPosting `json:"jobs"`
	Saved []string     `json:"saved"`
}

// SkillGapRequest is sent to the skill gap endpoint. Depending on the backend
// version either TargetRoleID or TargetSkills is populated.
type SkillGapRequest struct {
	CurrentSkills []string `json:"current_skills"`
	TargetRoleID  string   `json:"target_role_id,omitempty"`
	TargetSkills  []string `json:"target_skills,omitempty"`
}

// SkillGapAnalysis summarises matching and missing skills
type SkillGapAnalysis struct {
	MatchingSkills              []string `json:"matching_skills"`
	MissingSkills               []string `json:"missing_skills"`
	SkillGapPercentage          float64  `json:"skill_gap_percentage"`
	ReadinessScore              float64  `json:"readiness_score"`
	EstimatedLearningTimeMonths float64  `json:"estimated_learning_time_months"`
	ConfidenceLevel             string   `json:"confidence_level"`
}

// LearningResource is a course, doc or video suggested for a phase
type LearningResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// LearningPhase is one ordered step of the roadmap
type LearningPhase struct {
	Phase          int                `json:"phase"`
	DurationMonths float64            `json:"duration_months"`
	Focus          string             `json:"focus"`
	SkillsToLearn  []string           `json:"skills_to_learn"`
	Priority       string             `json:"priority"`
	Reasoning      string             `json:"reasoning"`
	Resources      []LearningResource `json:"resources,omitempty"`
}

// SkillGapResponse is the full analysis result
type SkillGapResponse struct {
	Analysis        SkillGapAnalysis `json:"analysis"`
	LearningRoadmap []LearningPhase  `json:"learning_roadmap"`
}

// SaveProfileResult is returned when the corrected profile is stored remotely
type SaveProfileResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ProfileID string `json:"profile_id"`
}

// ProfileView is the review page payload
type ProfileView struct {
	Profile      CandidateProfile  `json:"profile"`
	OverallScore int               `json:"overallScore"`
	Confidence   map[string]string `json:"confidenceLevels"`
	PreviewURL   string            `json:"previewUrl,omitempty"`
}
