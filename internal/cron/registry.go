package cron

import "context"

// Job represents a maintenance task run by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ManualJob is a job that only runs when triggered through RunJob, never on
// the schedule.
type ManualJob interface {
	Job
	Manual() bool
}

func isManual(job Job) bool {
	m, ok := job.(ManualJob)
	return ok && m.Manual()
}

// Registry tracks registered jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job. A job whose name is already registered replaces the
// earlier one in place.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	for i, existing := range r.jobs {
		if existing.Name() == job.Name() {
			r.jobs[i] = job
			return
		}
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Scheduled returns the jobs the scheduler runs each cycle, in order.
func (r *Registry) Scheduled() []Job {
	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if !isManual(job) {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Find returns the job registered under name.
func (r *Registry) Find(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Names lists registered job names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
