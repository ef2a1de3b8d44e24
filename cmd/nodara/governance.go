package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"nodara-sdk/governance"
	"nodara-sdk/message"
)

// NewRootCmd builds the nodara command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:           "nodara",
		Short:         "Nodara network command line interface",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	if err := bindConfig(rootCmd, v); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(governanceCmd(v))
	return rootCmd
}

func governanceCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "governance",
		Short: "Submit, vote on and execute governance proposals",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "submit <description> <parameter> <value>",
		Short: "Submit a new governance proposal",
		Args:  cobra.ExactArgs(3),
		RunE: withGovernance(v, "Proposal submitted", func(ctx context.Context, g *governance.Client, args []string) (*message.Response, error) {
			return g.SubmitProposal(ctx, args[0], args[1], args[2])
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "vote <proposal_id> <true|false>",
		Short: "Vote on a proposal: true approves, false rejects",
		Args:  cobra.ExactArgs(2),
		RunE: withGovernance(v, "Vote cast", func(ctx context.Context, g *governance.Client, args []string) (*message.Response, error) {
			vote, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, fmt.Errorf("vote must be true or false, got %q", args[1])
			}
			return g.VoteProposal(ctx, args[0], vote)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "execute <proposal_id>",
		Short: "Execute an approved proposal",
		Args:  cobra.ExactArgs(1),
		RunE: withGovernance(v, "Proposal executed", func(ctx context.Context, g *governance.Client, args []string) (*message.Response, error) {
			return g.ExecuteProposal(ctx, args[0])
		}),
	})

	return cmd
}

type governanceFunc func(ctx context.Context, g *governance.Client, args []string) (*message.Response, error)

// withGovernance builds the client from config, runs fn and prints the response.
func withGovernance(v *viper.Viper, done string, fn governanceFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(v)
		if err != nil {
			return err
		}
		defer logger.Sync()

		g, cleanup, err := newGovernanceClient(v, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Debug("calling governance node", zap.String("endpoint", v.GetString(keyEndpoint)), zap.String("command", cmd.Name()))
		resp, err := fn(cmd.Context(), g, args)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n%s", done, pretty.Pretty(resp.Body))
		return nil
	}
}
