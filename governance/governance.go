// Package governance exposes the governance operations of a Nodara node:
// submitting a proposal, voting on it and executing it.
//
// Proposal lifecycle (pending, approved, executed) lives on the node; the
// client tracks nothing between calls.
package governance

import (
	"context"

	"nodara-sdk/client"
	"nodara-sdk/message"
)

// Methods
const (
	SubmitProposal  = "nodara_submitProposal"
	VoteProposal    = "nodara_voteProposal"
	ExecuteProposal = "nodara_executeProposal"
)

// Invoker performs one RPC call. *client.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, method string, params ...any) (*message.Response, error)
}

type Client struct {
	invoker Invoker
}

func New(invoker Invoker) *Client {
	return &Client{invoker: invoker}
}

// Dial creates a governance client talking to endpoint.
func Dial(endpoint string, opts ...client.Option) *Client {
	return New(client.NewClient(endpoint, opts...))
}

// SubmitProposal asks the node to change parameter to value.
func (c *Client) SubmitProposal(ctx context.Context, description, parameter, value string) (*message.Response, error) {
	return c.invoker.Invoke(ctx, SubmitProposal, description, parameter, value)
}

// VoteProposal approves (true) or rejects (false) a proposal.
func (c *Client) VoteProposal(ctx context.Context, proposalID string, vote bool) (*message.Response, error) {
	return c.invoker.Invoke(ctx, VoteProposal, proposalID, vote)
}

// ExecuteProposal applies an approved proposal.
func (c *Client) ExecuteProposal(ctx context.Context, proposalID string) (*message.Response, error) {
	return c.invoker.Invoke(ctx, ExecuteProposal, proposalID)
}
