package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nodara-sdk/rpcerr"
)

func TestClassifySuccess(t *testing.T) {
	out, err := Classify(200, []byte(`{"result": 42}`))
	require.NoError(t, err)
	require.False(t, out.Failed)
	require.NoError(t, out.Err())
	require.JSONEq(t, `{"result": 42}`, string(out.Payload))
}

func TestClassifyErrorFieldOn2xx(t *testing.T) {
	out, err := Classify(200, []byte(`{"error": "bad proposal"}`))
	require.NoError(t, err)
	require.True(t, out.Failed)

	var re *rpcerr.RPCError
	require.True(t, errors.As(out.Err(), &re))
	require.Equal(t, 200, re.Status)
	require.Contains(t, re.Error(), "bad proposal")
}

func TestClassifyStatusWithoutErrorField(t *testing.T) {
	out, err := Classify(500, []byte(`{}`))
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Equal(t, rpcerr.UnknownError, out.Message)
	require.Contains(t, out.Err().Error(), "Unknown error")
}

func TestClassifyStatusWithErrorField(t *testing.T) {
	out, err := Classify(404, []byte(`{"error": "method not found"}`))
	require.NoError(t, err)
	require.Equal(t, "method not found", out.Message)
}

func TestClassifyMalformed(t *testing.T) {
	for _, body := range []string{"", "<html>502 Bad Gateway</html>", `{"result":`} {
		_, err := Classify(200, []byte(body))
		require.ErrorIs(t, err, ErrMalformedBody, "body %q", body)
	}
}

func TestClassifyErrorShapes(t *testing.T) {
	cases := []struct {
		body   string
		failed bool
		msg    string
	}{
		{`{"error": null, "result": 1}`, false, ""},
		{`{"error": false}`, false, ""},
		{`{"error": ""}`, false, ""},
		{`{"error": 0}`, false, ""},
		{`{"error": {}}`, true, `{}`},
		{`{"error": []}`, true, `[]`},
		{`{"error": true}`, true, "true"},
		{`{"error": -32601}`, true, "-32601"},
		{`{"error": {"code": -32000, "message": "proposal not found"}}`, true, "proposal not found"},
		{`{"error": {"code": -32000}}`, true, `{"code": -32000}`},
		{`{"error": ["a"]}`, true, `["a"]`},
	}
	for _, c := range cases {
		out, err := Classify(200, []byte(c.body))
		require.NoError(t, err, c.body)
		require.Equal(t, c.failed, out.Failed, c.body)
		require.Equal(t, c.msg, out.Message, c.body)
	}
}

func TestReadBodyLimit(t *testing.T) {
	body, err := ReadBody(strings.NewReader(`{"result":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"result":1}`, string(body))

	_, err = ReadBody(bytes.NewReader(make([]byte, MaxBodySize+1)))
	require.Error(t, err)
}

func TestClassifyEmptyContainersFailEvenOn2xx(t *testing.T) {
	for _, body := range []string{`{"error": {}, "result": 1}`, `{"error": [ ]}`} {
		out, err := Classify(200, []byte(body))
		require.NoError(t, err, body)
		require.True(t, out.Failed, body)
		require.Nil(t, out.Payload, body)
		require.NotEqual(t, rpcerr.UnknownError, out.Message, body)
	}
}
