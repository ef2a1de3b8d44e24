package governance

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"nodara-sdk/message"
	"nodara-sdk/rpcerr"
)

type call struct {
	method string
	params []any
}

// fakeInvoker records calls and replies with resp/err.
type fakeInvoker struct {
	calls []call
	resp  *message.Response
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, method string, params ...any) (*message.Response, error) {
	f.calls = append(f.calls, call{method, params})
	return f.resp, f.err
}

func TestSubmitProposal(t *testing.T) {
	inv := &fakeInvoker{resp: &message.Response{Status: 200, Body: []byte(`{"result":{"id":"prop-1"}}`)}}

	resp, err := New(inv).SubmitProposal(context.Background(), "Raise block reward", "block_reward", "15")
	require.NoError(t, err)
	require.Same(t, inv.resp, resp)
	require.Equal(t, []call{{SubmitProposal, []any{"Raise block reward", "block_reward", "15"}}}, inv.calls)
}

func TestVoteProposalKeepsBoolean(t *testing.T) {
	for _, vote := range []bool{true, false} {
		inv := &fakeInvoker{resp: &message.Response{}}
		_, err := New(inv).VoteProposal(context.Background(), "prop-1", vote)
		require.NoError(t, err)
		require.Len(t, inv.calls, 1)
		require.Equal(t, VoteProposal, inv.calls[0].method)
		require.Equal(t, []any{"prop-1", vote}, inv.calls[0].params)
	}
}

func TestExecuteProposal(t *testing.T) {
	inv := &fakeInvoker{resp: &message.Response{}}
	_, err := New(inv).ExecuteProposal(context.Background(), "prop-9")
	require.NoError(t, err)
	require.Equal(t, []call{{ExecuteProposal, []any{"prop-9"}}}, inv.calls)
}

func TestErrorsPassThrough(t *testing.T) {
	want := &rpcerr.RPCError{Status: 200, Message: "proposal not approved"}
	inv := &fakeInvoker{err: want}

	_, err := New(inv).ExecuteProposal(context.Background(), "prop-9")
	require.True(t, errors.Is(err, want))
}

func TestDialSendsBooleanOnTheWire(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Write([]byte(`{"result":{"approvals":1}}`))
	}))
	defer srv.Close()

	_, err := Dial(srv.URL).VoteProposal(context.Background(), "prop-3", false)
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"nodara_voteProposal","params":["prop-3",false]}`, body)
}
