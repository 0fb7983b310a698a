package rbac

import (
	"context"
	"sync"
)

type recordingAuditor struct {
	mu           sync.Mutex
	denials      []Denial
	degradations []Degradation
}

func (a *recordingAuditor) AssignmentDenied(_ context.Context, d Denial) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denials = append(a.denials, d)
}

func (a *recordingAuditor) ResolutionDegraded(_ context.Context, d Degradation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.degradations = append(a.degradations, d)
}

type countingRecorder struct {
	mu          sync.Mutex
	resolutions map[string]int
	assignments map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{resolutions: map[string]int{}, assignments: map[string]int{}}
}

func (r *countingRecorder) ObserveResolution(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions[outcome]++
}

func (r *countingRecorder) ObserveAssignment(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[outcome]++
}
