package rbac

import "context"

// Outcome labels reported to a Recorder.
const (
	OutcomeResolved = "resolved"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
	OutcomeAllowed  = "allowed"
	OutcomeBypassed = "bypassed"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
)

// Denial describes a refused role assignment.
type Denial struct {
	Reason        string
	CurrentRole   Role
	AttemptedRole Role
	RoleType      RoleType
	CompanyID     string
}

// Degradation describes a resolution served without plan data.
type Degradation struct {
	CompanyID string
	Role      Role
	Cause     error
}

// Auditor receives the two audited decision points of the engine.
type Auditor interface {
	AssignmentDenied(ctx context.Context, d Denial)
	ResolutionDegraded(ctx context.Context, d Degradation)
}

// Recorder counts decision outcomes.
type Recorder interface {
	ObserveResolution(outcome string)
	ObserveAssignment(outcome string)
}

// Option configures Resolver and Authorizer.
type Option func(*options)

type options struct {
	auditor  Auditor
	recorder Recorder
}

// WithAuditor sets the sink for audit events.
func WithAuditor(a Auditor) Option {
	return func(o *options) {
		if a != nil {
			o.auditor = a
		}
	}
}

// WithRecorder sets the sink for outcome counters.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{auditor: nopAuditor{}, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nopAuditor struct{}

func (nopAuditor) AssignmentDenied(context.Context, Denial)        {}
func (nopAuditor) ResolutionDegraded(context.Context, Degradation) {}

type nopRecorder struct{}

func (nopRecorder) ObserveResolution(string) {}
func (nopRecorder) ObserveAssignment(string) {}
