// Package memstore is an in-memory ExperimentStore for tests, the offline
// CLI and DATABASE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"sync"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/ports"
)

// Store keeps copies of everything it is given; callers never share memory
// with the store.
type Store struct {
	mu          sync.RWMutex
	experiments map[core.ExperimentID]*experiment.Experiment
	phases      map[core.ExperimentID]map[phase.Name]phase.State
	results     map[core.ExperimentID][]*validation.ValidationResult
	artifacts   map[core.ExperimentID][]*artifacts.Artifact
}

var _ ports.ExperimentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		experiments: make(map[core.ExperimentID]*experiment.Experiment),
		phases:      make(map[core.ExperimentID]map[phase.Name]phase.State),
		results:     make(map[core.ExperimentID][]*validation.ValidationResult),
		artifacts:   make(map[core.ExperimentID][]*artifacts.Artifact),
	}
}

func (s *Store) SaveExperiment(_ context.Context, exp *experiment.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments[exp.ID] = exp.Clone()
	return nil
}

func (s *Store) GetExperiment(_ context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.experiments[id]
	if !ok {
		return nil, core.NewNotFoundError("experiment", id.String())
	}
	return exp.Clone(), nil
}

func (s *Store) ListExperiments(_ context.Context, filter ports.ListFilter) ([]*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*experiment.Experiment
	for _, exp := range s.experiments {
		if filter.Status != "" && exp.Status != filter.Status {
			continue
		}
		if exp.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, exp.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Archive(_ context.Context, id core.ExperimentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiments[id]
	if !ok {
		return core.NewNotFoundError("experiment", id.String())
	}
	exp.Archived = true
	return nil
}

func (s *Store) SavePhaseState(_ context.Context, state phase.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPhase, ok := s.phases[state.ExperimentID]
	if !ok {
		byPhase = make(map[phase.Name]phase.State)
		s.phases[state.ExperimentID] = byPhase
	}
	rec := phase.StatusRecord{States: []phase.State{state}}
	byPhase[state.Phase] = rec.Clone().States[0]
	return nil
}

// GetPhaseRecord returns the ordered record; phases never saved read as not_started.
func (s *Store) GetPhaseRecord(_ context.Context, id core.ExperimentID) (*phase.StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.experiments[id]; !ok {
		return nil, core.NewNotFoundError("experiment", id.String())
	}
	rec := phase.NewStatusRecord(id)
	for i, st := range rec.States {
		if saved, ok := s.phases[id][st.Phase]; ok {
			rec.States[i] = saved
		}
	}
	return rec.Clone(), nil
}

func (s *Store) AppendValidation(_ context.Context, result *validation.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ExperimentID] = append(s.results[result.ExperimentID], copyResult(result))
	return nil
}

func (s *Store) ListValidations(_ context.Context, id core.ExperimentID) ([]*validation.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*validation.ValidationResult, 0, len(s.results[id]))
	for _, r := range s.results[id] {
		out = append(out, copyResult(r))
	}
	return out, nil
}

// SaveArtifact inserts or replaces an artifact by ID.
func (s *Store) SaveArtifact(_ context.Context, art *artifacts.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyArtifact(art)
	list := s.artifacts[art.ExperimentID]
	for i, existing := range list {
		if existing.ID == art.ID {
			list[i] = c
			return nil
		}
	}
	s.artifacts[art.ExperimentID] = append(list, c)
	return nil
}

func (s *Store) ListArtifacts(_ context.Context, id core.ExperimentID) ([]*artifacts.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*artifacts.Artifact, 0, len(s.artifacts[id]))
	for _, a := range s.artifacts[id] {
		out = append(out, copyArtifact(a))
	}
	return out, nil
}

func copyResult(r *validation.ValidationResult) *validation.ValidationResult {
	c := *r
	c.Violations = append([]validation.Violation(nil), r.Violations...)
	c.Scores = make(validation.Scores, len(r.Scores))
	for k, v := range r.Scores {
		c.Scores[k] = v
	}
	if r.SNRdB != nil {
		snr := *r.SNRdB
		c.SNRdB = &snr
	}
	if r.SNRFloorDB != nil {
		floor := *r.SNRFloorDB
		c.SNRFloorDB = &floor
	}
	return &c
}

func copyArtifact(a *artifacts.Artifact) *artifacts.Artifact {
	c := *a
	if a.Claims != nil {
		c.Claims = make(map[string]float64, len(a.Claims))
		for k, v := range a.Claims {
			c.Claims[k] = v
		}
	}
	return &c
}
