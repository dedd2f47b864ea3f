package main

import (
	"fmt"
	"io"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/provider/stub"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted account session",
		Long: `status restores the session from the configured store and prints it.
An expired or malformed stored record is reported as no session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			be, err := opts.openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer be.closer()

			// Restoring never reaches the provider, so an inert client suffices.
			m, err := opts.buildManager(ctx, be, stub.New(stub.Config{}), nil, logger, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			printState(cmd.OutOrStdout(), m.State(), time.Now())
			return nil
		},
	}
}

func printState(w io.Writer, st goAccount.SessionState, now time.Time) {
	fmt.Fprintf(w, "state:    %s\n", st.Kind)
	switch st.Kind {
	case goAccount.StateActive:
		c := st.Credential
		fmt.Fprintf(w, "account:  %s\n", c.AccountID)
		if c.DisplayName != "" {
			fmt.Fprintf(w, "name:     %s\n", c.DisplayName)
		}
		fmt.Fprintf(w, "provider: %s\n", c.Provider)
		if c.Expiry.IsZero() {
			fmt.Fprintln(w, "expires:  unknown")
		} else {
			fmt.Fprintf(w, "expires:  %s\n", c.Expiry.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "active:   %t\n", c.Valid(now))
	case goAccount.StateFailed:
		fmt.Fprintf(w, "reason:   %s\n", st.Reason)
		fmt.Fprintln(w, "active:   false")
	default:
		fmt.Fprintln(w, "active:   false")
	}
}
