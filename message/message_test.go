package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequestEmptyParams(t *testing.T) {
	req := NewRequest("nodara_listProposals")

	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"nodara_listProposals","params":[]}`, string(data))
}

func TestRequestKeepsParamOrderAndTypes(t *testing.T) {
	req := NewRequest("nodara_voteProposal", "prop-7", false)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"nodara_voteProposal","params":["prop-7",false]}`, string(data))
}

func TestResponseResult(t *testing.T) {
	resp := &Response{Status: 200, Body: json.RawMessage(`{"result":{"id":"prop-1"}}`)}

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, resp.DecodeResult(&out))
	require.Equal(t, "prop-1", out.ID)

	bare := &Response{Status: 200, Body: json.RawMessage(`{"id":"prop-2"}`)}
	require.NoError(t, bare.DecodeResult(&out))
	require.Equal(t, "prop-2", out.ID)
}
