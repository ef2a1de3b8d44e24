package test

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nodara-sdk/client"
	"nodara-sdk/governance"
	"nodara-sdk/loadbalance"
	"nodara-sdk/message"
	"nodara-sdk/middleware"
	"nodara-sdk/registry"
	"nodara-sdk/rpcerr"
	"nodara-sdk/server"
)

type proposal struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Approvals  int    `json:"approvals"`
	Rejections int    `json:"rejections"`
}

// startNode serves gov on a loopback port and returns once it is advertised in reg.
func startNode(t *testing.T, gov *server.Governance, reg registry.Registry, mws ...middleware.Middleware) string {
	t.Helper()
	svr := server.NewServer(zaptest.NewLogger(t))
	require.NoError(t, svr.Register("nodara", gov))
	for _, mw := range mws {
		svr.Use(mw)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := "http://" + listener.Addr().String()

	done := make(chan error, 1)
	go func() { done <- svr.ServeListener(listener, endpoint, reg) }()
	if reg != nil {
		require.Eventually(t, func() bool {
			instances, err := reg.Discover(context.Background(), "nodara")
			if err != nil {
				return false
			}
			for _, inst := range instances {
				if inst.Endpoint == endpoint {
					return true
				}
			}
			return false
		}, 3*time.Second, 10*time.Millisecond, "node %s never registered", endpoint)
	}
	t.Cleanup(func() {
		require.NoError(t, svr.Shutdown(3*time.Second))
		require.NoError(t, <-done)
	})
	return endpoint
}

func decode(t *testing.T, resp *message.Response) proposal {
	t.Helper()
	var p proposal
	require.NoError(t, resp.DecodeResult(&p))
	return p
}

// TestFullIntegration: Client → Middleware → Resolver(registry) → LB → HTTP → Server → Middleware → reflect.Call
func TestFullIntegration(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	startNode(t, server.NewGovernance(), reg, middleware.LoggingMiddleware(zaptest.NewLogger(t)))

	logger := zaptest.NewLogger(t)
	gov := governance.New(client.NewClient("",
		client.WithLogger(logger),
		client.WithResolver(client.NewDiscoveryResolver(reg, "nodara", &loadbalance.RoundRobinBalancer{}, logger)),
		client.WithMiddleware(
			middleware.LoggingMiddleware(logger),
			middleware.RetryMiddleware(2, 10*time.Millisecond, logger),
			middleware.TimeOutMiddleware(2*time.Second),
		),
	))

	resp, err := gov.SubmitProposal(ctx, "Raise block reward", "block_reward", "15")
	require.NoError(t, err)
	p := decode(t, resp)
	require.Equal(t, "prop-1", p.ID)
	require.Equal(t, server.StatusPending, p.Status)

	resp, err = gov.VoteProposal(ctx, p.ID, true)
	require.NoError(t, err)
	require.Equal(t, 1, decode(t, resp).Approvals)

	resp, err = gov.ExecuteProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, server.StatusExecuted, decode(t, resp).Status)

	_, err = gov.ExecuteProposal(ctx, p.ID)
	require.True(t, rpcerr.IsRPC(err))
	require.Contains(t, err.Error(), "proposal already executed")
}

// TestMultiNode: two nodes sharing state behind a consistent-hash balancer.
func TestMultiNode(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	shared := server.NewGovernance()
	startNode(t, shared, reg)
	startNode(t, shared, reg)

	instances, err := reg.Discover(ctx, "nodara")
	require.NoError(t, err)
	require.Len(t, instances, 2)

	gov := governance.New(client.NewClient("",
		client.WithResolver(client.NewDiscoveryResolver(reg, "nodara", loadbalance.NewConsistentHashBalancer(), nil)),
	))

	for i := 1; i <= 10; i++ {
		resp, err := gov.SubmitProposal(ctx, "proposal", "param", "value")
		require.NoError(t, err, "request %d", i)
		id := decode(t, resp).ID

		_, err = gov.VoteProposal(ctx, id, i%3 != 0)
		require.NoError(t, err)

		_, err = gov.ExecuteProposal(ctx, id)
		if i%3 == 0 {
			require.ErrorContains(t, err, "proposal not approved")
		} else {
			require.NoError(t, err)
		}
	}
}

// TestNodeGoesAway: a deregistered node is no longer picked.
func TestNodeGoesAway(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	endpoint := startNode(t, server.NewGovernance(), reg)

	c := client.NewClient("", client.WithResolver(client.NewDiscoveryResolver(reg, "nodara", nil, nil)))
	_, err := c.Invoke(ctx, governance.SubmitProposal, "d", "p", "v")
	require.NoError(t, err)

	require.NoError(t, reg.Deregister(ctx, "nodara", endpoint))
	_, err = c.Invoke(ctx, governance.SubmitProposal, "d", "p", "v")
	require.True(t, rpcerr.IsNetwork(err))
	require.ErrorIs(t, err, loadbalance.ErrNoInstances)
}

func TestRateLimitedNode(t *testing.T) {
	endpoint := startNode(t, server.NewGovernance(), nil, middleware.RateLimitMiddleware(1, 1))
	gov := governance.Dial(endpoint)

	_, err := gov.SubmitProposal(context.Background(), "d", "p", "v")
	require.NoError(t, err)

	_, err = gov.SubmitProposal(context.Background(), "d", "p", "v")
	require.True(t, rpcerr.IsRPC(err))
	require.Contains(t, err.Error(), "rate limit exceeded")
}

// TestFullIntegrationWithEtcd runs against a real etcd cluster named by
// NODARA_ETCD_ENDPOINTS.
func TestFullIntegrationWithEtcd(t *testing.T) {
	env := os.Getenv("NODARA_ETCD_ENDPOINTS")
	if env == "" {
		t.Skip("NODARA_ETCD_ENDPOINTS not set")
	}
	reg, err := registry.NewEtcdRegistry(strings.Split(env, ","), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reg.Close()

	startNode(t, server.NewGovernance(), reg)

	gov := governance.New(client.NewClient("",
		client.WithResolver(client.NewDiscoveryResolver(reg, "nodara", &loadbalance.WeightedRandomBalancer{}, nil)),
	))
	resp, err := gov.SubmitProposal(context.Background(), "Raise fee", "fee", "12")
	require.NoError(t, err)
	require.Equal(t, "prop-1", decode(t, resp).ID)
}
