package main

import (
	"fmt"
	"strconv"

	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage worker accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List worker accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new worker account",
	Args:  cobra.NoArgs,
	RunE:  runAccountsAdd,
}

var (
	accountsListJSON bool
	accountsType     string
	accountsUsername string
	accountsPassword string
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd)

	accountsListCmd.Flags().BoolVar(&accountsListJSON, "json", false, "Output as JSON")

	accountsAddCmd.Flags().StringVar(&accountsType, "type", "", "Operator (KTX, SRT)")
	accountsAddCmd.Flags().StringVarP(&accountsUsername, "username", "u", "", "Operator login")
	accountsAddCmd.Flags().StringVarP(&accountsPassword, "password", "p", "", "Operator password")
	_ = accountsAddCmd.MarkFlagRequired("type")
	_ = accountsAddCmd.MarkFlagRequired("username")
	_ = accountsAddCmd.MarkFlagRequired("password")
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	accounts, err := newClient().ListAccounts(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if accountsListJSON {
		if accounts == nil {
			accounts = []train.Account{}
		}
		return encodeJSON(out, accounts)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No accounts found.")
		return nil
	}
	builder := ui.NewTableBuilder([]string{"ID", "TYPE", "USERNAME"}, len(accounts))
	for _, account := range accounts {
		builder.AddRow(strconv.FormatInt(account.ID, 10), string(account.Type), account.Username)
	}
	fmt.Fprint(out, builder.String())
	return nil
}

func runAccountsAdd(cmd *cobra.Command, _ []string) error {
	mode, err := train.ParseMode(accountsType)
	if err != nil {
		return err
	}
	created, err := newClient().CreateAccount(cmd.Context(), train.Account{
		Type:     mode,
		Username: accountsUsername,
		Password: accountsPassword,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %d (%s)\n", created.Type, created.ID, created.Username)
	return nil
}
