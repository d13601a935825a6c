package task

import (
	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/group"
)

// Task is one rank's share of a job, fully prepared for execution.
// It is built by the executor from the job and the rank's group member.
type Task struct {
	// Member is the rank's handle on the worker group; it carries the rank
	// and the group size.
	Member group.Group

	Samples int64
	Root    int

	// Device is the selector passed to the device registry.
	Device string
	// Lanes caps the device's parallel lanes; 0 lets the provider decide.
	Lanes int
}

// New prepares the task for member under job.
func New(job *config.Job, member group.Group) *Task {
	return &Task{
		Member:  member,
		Samples: job.Samples,
		Root:    job.Root,
		Device:  job.Device,
		Lanes:   job.Lanes,
	}
}

// Rank is the rank this task runs as.
func (t *Task) Rank() int { return t.Member.Rank() }

// Workers is the size of the group the task belongs to.
func (t *Task) Workers() int { return t.Member.Size() }

// IsRoot reports whether this task receives the global sum.
func (t *Task) IsRoot() bool { return t.Rank() == t.Root }
