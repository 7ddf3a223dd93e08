package domain

import (
	"errors"
	"slices"
	"time"
)

// JobState est l'état d'un job de fond (préchargement audio d'une sourate).
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobFinishing JobState = "finishing"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

const (
	// JobTypePrefetch télécharge l'audio d'une sourate pour un récitateur.
	JobTypePrefetch = "prefetch"
	// JobTypeNoop ne fait rien; sert aux tests et au diagnostic du pool.
	JobTypeNoop = "noop"
)

var ErrInvalidTransition = errors.New("invalid job state transition")

// jobTransitions liste les états atteignables depuis chaque état non terminal.
var jobTransitions = map[JobState][]JobState{
	JobQueued:    {JobRunning, JobCanceled, JobFailed},
	JobRunning:   {JobFinishing, JobCanceled, JobFailed},
	JobFinishing: {JobCompleted, JobCanceled, JobFailed},
}

func (s JobState) IsTerminal() bool {
	_, open := jobTransitions[s]
	return !open && s.Known()
}

func (s JobState) Known() bool {
	switch s {
	case JobQueued, JobRunning, JobFinishing, JobCompleted, JobFailed, JobCanceled:
		return true
	}
	return false
}

// CanTransition accepte aussi from == to (mise à jour sans changement d'état),
// sauf pour un état inconnu.
func CanTransition(from, to JobState) bool {
	if !from.Known() || !to.Known() {
		return false
	}
	if from == to {
		return true
	}
	return slices.Contains(jobTransitions[from], to)
}

type Job struct {
	ID        string
	Type      string
	State     JobState
	Progress  float64
	CreatedAt time.Time
	UpdatedAt time.Time

	ParamsJSON   []byte
	ResultJSON   []byte
	ErrorCode    string
	ErrorMessage string
}

// Cancelable indique si l'annulation a encore un effet.
func (j Job) Cancelable() bool {
	return !j.State.IsTerminal()
}
