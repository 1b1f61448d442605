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

package pgi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// LedgerReport is the outcome of a ledger consistency check.
type LedgerReport struct {
	Balanced   bool                    `json:"balanced"`
	Unbalanced []model.LedgerImbalance `json:"unbalanced"`
}

// TrialBalance lists per account totals. Total debits equal total credits on a
// healthy ledger.
type TrialBalance struct {
	Accounts    []model.AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal        `json:"total_debit"`
	TotalCredit decimal.Decimal        `json:"total_credit"`
	Balanced    bool                   `json:"balanced"`
}

// VerifyLedger reports every transaction whose debits and credits differ.
func (p *PGI) VerifyLedger(ctx context.Context) (*LedgerReport, error) {
	ctx, span := tracer.Start(ctx, "VerifyLedger")
	defer span.End()

	unbalanced, err := p.datasource.GetUnbalancedTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if unbalanced == nil {
		unbalanced = []model.LedgerImbalance{}
	}
	return &LedgerReport{Balanced: len(unbalanced) == 0, Unbalanced: unbalanced}, nil
}

// TrialBalance sums the ledger per account. Accounts without entries are listed
// with zero totals.
func (p *PGI) TrialBalance(ctx context.Context) (*TrialBalance, error) {
	balances, err := p.datasource.GetAccountBalances(ctx)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[model.LedgerAccount]model.AccountBalance, len(balances))
	for _, b := range balances {
		byAccount[b.Account] = b
	}

	tb := &TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, account := range model.LedgerAccounts {
		b, ok := byAccount[account]
		if !ok {
			b = model.AccountBalance{Account: account, Debit: decimal.Zero, Credit: decimal.Zero, Net: decimal.Zero}
		}
		tb.Accounts = append(tb.Accounts, b)
		tb.TotalDebit = tb.TotalDebit.Add(b.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(b.Credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

// GetLedgerTransaction returns the entries posted under txID.
func (p *PGI) GetLedgerTransaction(ctx context.Context, txID string) (*model.LedgerTransaction, error) {
	entries, err := p.datasource.GetLedgerEntriesByTxID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Ledger transaction '%s' not found", txID), nil)
	}
	return &model.LedgerTransaction{TxID: txID, Entries: entries}, nil
}
