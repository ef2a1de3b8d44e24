package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nodara-sdk/client"
	"nodara-sdk/governance"
	"nodara-sdk/loadbalance"
	"nodara-sdk/middleware"
	"nodara-sdk/registry"
)

const (
	// envPrefix prefixes every environment variable, e.g. NODARA_TIMEOUT.
	envPrefix = "NODARA"

	defaultEndpoint = "https://testnet.nodara.io/api"
	retryBaseDelay  = 200 * time.Millisecond
)

// Config keys
const (
	keyEndpoint      = "endpoint"
	keyTimeout       = "timeout"
	keyRetries       = "retries"
	keyRate          = "rate"
	keyEtcdEndpoints = "etcd_endpoints"
	keyService       = "service"
	keyVerbose       = "verbose"
)

// bindConfig registers the persistent flags of cmd and binds them into v.
// Precedence: flags, then environment, then defaults.
func bindConfig(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("endpoint", defaultEndpoint, "governance node RPC URL (env NODARA_API_URL)")
	flags.Duration("timeout", 30*time.Second, "per-attempt call timeout, 0 to disable")
	flags.Int("retries", 0, "retries on network errors")
	flags.Float64("rate", 0, "max calls per second, 0 for unlimited")
	flags.StringSlice("etcd-endpoints", nil, "discover nodes through etcd instead of --endpoint")
	flags.String("service", "nodara", "service name nodes register under in etcd")
	flags.BoolP("verbose", "v", false, "log every call")

	for key, flag := range map[string]string{
		keyEndpoint:      "endpoint",
		keyTimeout:       "timeout",
		keyRetries:       "retries",
		keyRate:          "rate",
		keyEtcdEndpoints: "etcd-endpoints",
		keyService:       "service",
		keyVerbose:       "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The endpoint keeps the historical variable name.
	return v.BindEnv(keyEndpoint, "NODARA_API_URL")
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	if v.GetBool(keyVerbose) {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// newGovernanceClient builds a client from config. The returned func releases
// the registry connection, if any.
func newGovernanceClient(v *viper.Viper, logger *zap.Logger) (*governance.Client, func(), error) {
	mws := []middleware.Middleware{middleware.LoggingMiddleware(logger)}
	if rate := v.GetFloat64(keyRate); rate > 0 {
		mws = append(mws, middleware.ThrottleMiddleware(rate, 1))
	}
	if retries := v.GetInt(keyRetries); retries > 0 {
		mws = append(mws, middleware.RetryMiddleware(retries, retryBaseDelay, logger))
	}
	if timeout := v.GetDuration(keyTimeout); timeout > 0 {
		mws = append(mws, middleware.TimeOutMiddleware(timeout))
	}

	opts := []client.Option{
		client.WithHTTPClient(&http.Client{}),
		client.WithLogger(logger),
		client.WithMiddleware(mws...),
	}

	cleanup := func() {}
	if etcd := splitList(v.GetStringSlice(keyEtcdEndpoints)); len(etcd) > 0 {
		reg, err := registry.NewEtcdRegistry(etcd, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { reg.Close() }
		resolver := client.NewDiscoveryResolver(reg, v.GetString(keyService), loadbalance.NewConsistentHashBalancer(), logger)
		opts = append(opts, client.WithResolver(resolver))
	}

	return governance.Dial(v.GetString(keyEndpoint), opts...), cleanup, nil
}

// splitList flattens comma-separated entries; environment values arrive as
// one "a,b" string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
