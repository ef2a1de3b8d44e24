package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Proposal statuses
const (
	StatusPending  = "pending"
	StatusExecuted = "executed"
)

var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrAlreadyExecuted  = errors.New("proposal already executed")
	ErrNotApproved      = errors.New("proposal not approved")
)

type Proposal struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Parameter   string    `json:"parameter"`
	Value       string    `json:"value"`
	Status      string    `json:"status"`
	Approvals   int       `json:"approvals"`
	Rejections  int       `json:"rejections"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Governance keeps proposals in memory and applies executed ones to Params.
// Served under the "nodara" namespace it answers nodara_submitProposal,
// nodara_voteProposal, nodara_executeProposal and nodara_getProposal.
type Governance struct {
	mu        sync.Mutex
	seq       int
	proposals map[string]*Proposal
	params    map[string]string // Network parameters changed by executed proposals
}

func NewGovernance() *Governance {
	return &Governance{
		proposals: make(map[string]*Proposal),
		params:    make(map[string]string),
	}
}

type SubmitArgs struct {
	Description string
	Parameter   string
	Value       string
}

type VoteArgs struct {
	ProposalID string
	Vote       bool
}

type ProposalArgs struct {
	ProposalID string
}

func (g *Governance) SubmitProposal(args *SubmitArgs, reply *Proposal) error {
	if strings.TrimSpace(args.Description) == "" || strings.TrimSpace(args.Parameter) == "" {
		return errors.New("description and parameter are required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	p := &Proposal{
		ID:          fmt.Sprintf("prop-%d", g.seq),
		Description: args.Description,
		Parameter:   args.Parameter,
		Value:       args.Value,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	g.proposals[p.ID] = p
	*reply = *p
	return nil
}

func (g *Governance) VoteProposal(args *VoteArgs, reply *Proposal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pendingLocked(args.ProposalID)
	if err != nil {
		return err
	}
	if args.Vote {
		p.Approvals++
	} else {
		p.Rejections++
	}
	*reply = *p
	return nil
}

// ExecuteProposal applies a proposal with more approvals than rejections.
func (g *Governance) ExecuteProposal(args *ProposalArgs, reply *Proposal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pendingLocked(args.ProposalID)
	if err != nil {
		return err
	}
	if p.Approvals <= p.Rejections {
		return ErrNotApproved
	}
	p.Status = StatusExecuted
	g.params[p.Parameter] = p.Value
	*reply = *p
	return nil
}

func (g *Governance) GetProposal(args *ProposalArgs, reply *Proposal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[args.ProposalID]
	if !ok {
		return ErrProposalNotFound
	}
	*reply = *p
	return nil
}

// Param returns the current value of a network parameter.
func (g *Governance) Param(name string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.params[name]
	return v, ok
}

func (g *Governance) pendingLocked(id string) (*Proposal, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	if p.Status == StatusExecuted {
		return nil, ErrAlreadyExecuted
	}
	return p, nil
}
