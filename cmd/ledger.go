/*
Copyright 2024 Boreal Insurance PGI Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var errLedgerUnbalanced = errors.New("ledger has unbalanced transactions")

func ledgerCommands(app *pgiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "inspect the pgi ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "list transactions whose debits and credits differ",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.pgi.VerifyLedger(context.Background())
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.Balanced {
				return errLedgerUnbalanced
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "trial-balance",
		Short: "print debit and credit totals per account",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := app.pgi.TrialBalance(context.Background())
			if err != nil {
				return err
			}
			return printJSON(tb)
		},
	})
	return cmd
}
