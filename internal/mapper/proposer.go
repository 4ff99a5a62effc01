package mapper

import (
	"context"

	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

// ProposalKind enumerates the closed set of proposer outcomes.
type ProposalKind string

const (
	// ProposalStep carries the next browser action to perform and record.
	ProposalStep ProposalKind = "step"
	// ProposalInput asks the human operator for a field value.
	ProposalInput ProposalKind = "input"
	// ProposalDone signals the objective is satisfied.
	ProposalDone ProposalKind = "done"
)

// Proposal is one outcome of an ActionProposer iteration. Exactly one of
// Step or Input is set, according to Kind.
type Proposal struct {
	Kind    ProposalKind
	Step    *schema.PlanStep
	Input   *schema.InputRequest
	Summary string // set on ProposalDone: what the run achieved
}

// ActionProposer decides the next action during mapping, given the objective,
// the current page state and the parameters collected so far. Collected
// values must be used verbatim when a step needs them (typing a document
// number the human just supplied): that literal reuse is what lets the plan
// compiler rewrite the value into a placeholder later. It is an injected
// external capability; the session treats each call as blocking and never
// retries a proposer error.
type ActionProposer interface {
	ProposeNext(ctx context.Context, objective schema.Objective, state surface.PageState, collected []schema.CollectedParameter) (*Proposal, error)
}
