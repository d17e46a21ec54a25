package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Job is one reconciliation sweep run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by unique name in registration order, which is also
// the order a cycle runs them in.
type Registry struct {
	jobs  []Job
	index map[string]int
}

// NewRegistry registers jobs in order, skipping nil entries.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. Names must be non-empty and unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("job name is required")
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}

func (r *Registry) Lookup(name string) (Job, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.jobs[i], true
}

// Select resolves names to jobs, keeping registration order. No names selects every job.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	wanted := map[string]bool{}
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown job %q (registered: %s)", name, strings.Join(r.Names(), ", "))
		}
		wanted[name] = true
	}
	selected := make([]Job, 0, len(wanted))
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			selected = append(selected, job)
		}
	}
	return selected, nil
}
