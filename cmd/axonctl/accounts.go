package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAccountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Inspect and adjust ledger accounts",
	}

	cmd.AddCommand(
		newAccountsGetCmd(opts),
		newAccountsCreateCmd(opts),
		newAccountsDebitCmd(opts),
		newAccountsCancelCmd(opts),
	)
	return cmd
}

func newAccountsGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id|email>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newLedgerClient(opts)
			if err != nil {
				return err
			}
			acc, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), acc, opts.asJSON)
		},
	}
}

func newAccountsCreateCmd(opts *options) *cobra.Command {
	var name, avatar string

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an account, or return the existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newLedgerClient(opts)
			if err != nil {
				return err
			}
			acc, err := c.Create(cmd.Context(), args[0], name, avatar)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), acc, opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	return cmd
}

func newAccountsDebitCmd(opts *options) *cobra.Command {
	var subscriptionID string

	cmd := &cobra.Command{
		Use:   "debit <account-id> <tokens>",
		Short: "Record token usage, optionally activating a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || tokens < 0 {
				return fmt.Errorf("tokens must be a non-negative integer, got %q", args[1])
			}
			c, err := newLedgerClient(opts)
			if err != nil {
				return err
			}
			acc, err := c.Debit(cmd.Context(), args[0], tokens, subscriptionID)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), acc, opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "activate PRO with this provider subscription id")
	return cmd
}

func newAccountsCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <account-id>",
		Short: "Drop the account's subscription and restore the FREE allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newLedgerClient(opts)
			if err != nil {
				return err
			}
			acc, err := c.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), acc, opts.asJSON)
		},
	}
}

func printAccount(w io.Writer, acc *account, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(acc)
	}

	sub := "-"
	if acc.SubscriptionID != nil {
		sub = *acc.SubscriptionID
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", acc.ID)
	fmt.Fprintf(tw, "Email\t%s\n", acc.Email)
	fmt.Fprintf(tw, "Tier\t%s\n", acc.Tier)
	fmt.Fprintf(tw, "Subscription\t%s\n", sub)
	fmt.Fprintf(tw, "Credits\t%d\n", acc.Credits)
	fmt.Fprintf(tw, "Monthly usage\t%d / %d\n", acc.MonthlyUsage, acc.MonthlyCredits)
	fmt.Fprintf(tw, "Remaining\t%d\n", acc.Remaining)
	fmt.Fprintf(tw, "Total usage\t%d\n", acc.TotalUsage)
	fmt.Fprintf(tw, "Last reset\t%s\n", acc.LastResetDate.Format("2006-01-02"))
	return tw.Flush()
}
