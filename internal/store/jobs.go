package store

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"wevolve/internal/errors"
	"wevolve/internal/types"
)

// JobStore holds the last fetched job list and the postings the user saved.
// Saved postings are cached; the fetched list is not.
type JobStore struct {
	mu    sync.RWMutex
	query string
	jobs  []types.JobPosting
	saved []types.JobPosting

	opts        options
	key         string
	hydrateOnce sync.Once
}

func NewJobStore(opts ...Option) *JobStore {
	o := buildOptions(opts)
	return &JobStore{
		jobs:  []types.JobPosting{},
		saved: []types.JobPosting{},
		opts:  o,
		key:   SavedJobsKey(o.namespace),
	}
}

// Hydrate loads saved postings from the cache once.
func (js *JobStore) Hydrate(ctx context.Context) {
	js.hydrateOnce.Do(func() {
		if js.opts.persister == nil {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, js.opts.persistTimeout)
		defer cancel()

		data, found, err := js.opts.persister.Load(ctx, js.key)
		if err != nil {
			js.opts.logger.LogError(err, "Failed to load saved jobs", "key", js.key)
			return
		}
		if !found {
			return
		}
		var saved []types.JobPosting
		if err := json.Unmarshal(data, &saved); err != nil {
			js.opts.logger.Warn("Ignoring corrupt saved jobs cache", "key", js.key, "error", err)
			return
		}

		js.mu.Lock()
		if saved != nil {
			js.saved = saved
		}
		js.mu.Unlock()
	})
}

// SetJobs replaces the fetched list.
func (js *JobStore) SetJobs(query string, jobs []types.JobPosting) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.query = query
	js.jobs = slices.Clone(jobs)
	if js.jobs == nil {
		js.jobs = []types.JobPosting{}
	}
}

// Jobs returns the fetched list with saved ids for display.
func (js *JobStore) Jobs() types.JobList {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return types.JobList{
		Query: js.query,
		Jobs:  slices.Clone(js.jobs),
		Saved: js.savedIDsLocked(),
	}
}

// SavedJobs returns the saved postings in the order they were saved.
func (js *JobStore) SavedJobs() types.JobList {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return types.JobList{
		Jobs:  slices.Clone(js.saved),
		Saved: js.savedIDsLocked(),
	}
}

func (js *JobStore) IsSaved(id string) bool {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return js.indexSavedLocked(id) >= 0
}

// ToggleSaveJob saves or unsaves a posting and reports whether it is saved
// afterwards. Only postings from the fetched list can be newly saved.
func (js *JobStore) ToggleSaveJob(id string) (bool, error) {
	js.mu.Lock()
	defer js.mu.Unlock()

	var saved bool
	if i := js.indexSavedLocked(id); i >= 0 {
		js.saved = slices.Delete(js.saved, i, i+1)
	} else {
		j := slices.IndexFunc(js.jobs, func(p types.JobPosting) bool { return p.JobID == id })
		if j < 0 {
			return false, errors.NewValidationError(errors.ErrCodeJobNotFound,
				"job not found in current results", nil).WithContext("job_id", id)
		}
		js.saved = append(js.saved, js.jobs[j])
		saved = true
	}

	if data, err := json.Marshal(js.saved); err == nil {
		js.persistLocked(data)
	}
	return saved, nil
}

func (js *JobStore) persistLocked(data []byte) {
	if js.opts.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), js.opts.persistTimeout)
	defer cancel()
	if err := js.opts.persister.Save(ctx, js.key, data); err != nil {
		js.opts.logger.LogError(errors.NewIOError(errors.ErrCodePersistFailed,
			"failed to cache saved jobs", err), "Saved jobs cache write failed", "key", js.key)
	}
}

func (js *JobStore) savedIDsLocked() []string {
	ids := make([]string, 0, len(js.saved))
	for _, j := range js.saved {
		ids = append(ids, j.JobID)
	}
	return ids
}

func (js *JobStore) indexSavedLocked(id string) int {
	return slices.IndexFunc(js.saved, func(p types.JobPosting) bool { return p.JobID == id })
}
