// Command nodara-devnode runs an in-memory governance node for local
// development and tests.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nodara-sdk/middleware"
	"nodara-sdk/registry"
	"nodara-sdk/server"
)

const envPrefix = "NODARA_DEVNODE"

func main() {
	if err := newServeCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "nodara-devnode",
		Short:        "Run an in-memory Nodara governance node",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":9933", "address to listen on")
	flags.String("advertise", "http://127.0.0.1:9933", "endpoint URL registered in etcd")
	flags.StringSlice("etcd-endpoints", nil, "register with these etcd endpoints")
	flags.Float64("rate", 0, "max calls per second, 0 for unlimited")
	flags.Duration("handler-timeout", 5*time.Second, "max time per call")
	flags.Bool("verbose", false, "debug logging")
	for _, name := range []string{"listen", "advertise", "etcd-endpoints", "rate", "handler-timeout", "verbose"} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return cmd
}

func serve(v *viper.Viper) error {
	logger, err := newLogger(v)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svr, err := newNode(v, logger)
	if err != nil {
		return err
	}

	var reg registry.Registry
	if etcd := strings.FieldsFunc(strings.Join(v.GetStringSlice("etcd_endpoints"), ","), isSeparator); len(etcd) > 0 {
		etcdReg, err := registry.NewEtcdRegistry(etcd, logger)
		if err != nil {
			return fmt.Errorf("connect etcd: %w", err)
		}
		defer etcdReg.Close()
		reg = etcdReg
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		if err := svr.Shutdown(10 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	return svr.Serve(v.GetString("listen"), v.GetString("advertise"), reg)
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if v.GetBool("verbose") {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// newNode builds the governance node and its middleware from config.
// A zero handler timeout leaves calls unbounded.
func newNode(v *viper.Viper, logger *zap.Logger) (*server.Server, error) {
	svr := server.NewServer(logger)
	if err := svr.Register("nodara", server.NewGovernance()); err != nil {
		return nil, err
	}
	svr.Use(middleware.LoggingMiddleware(logger))
	if rate := v.GetFloat64("rate"); rate > 0 {
		svr.Use(middleware.RateLimitMiddleware(rate, int(rate)+1))
	}
	if d := v.GetDuration("handler_timeout"); d > 0 {
		svr.Use(middleware.TimeOutMiddleware(d))
	}
	return svr, nil
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' '
}
