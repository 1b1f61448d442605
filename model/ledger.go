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
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnbalancedTransaction = errors.New("ledger transaction is not balanced")
	ErrTooFewEntries         = errors.New("ledger transaction needs at least two entries")
)

// LedgerEntry is one immutable row of the double-entry ledger.
type LedgerEntry struct {
	ID          string          `json:"id"`
	TxID        string          `json:"tx_id"`
	Account     LedgerAccount   `json:"account"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LedgerTransaction groups the entries that share a tx_id.
type LedgerTransaction struct {
	TxID    string        `json:"tx_id"`
	Entries []LedgerEntry `json:"entries"`
}

// NewLedgerPair builds a balanced debit/credit pair for amount under a fresh tx_id.
func NewLedgerPair(debit, credit LedgerAccount, amount decimal.Decimal, description, reference string) LedgerTransaction {
	txID := GenerateUUIDWithSuffix(PrefixLedgerTx)
	return LedgerTransaction{
		TxID: txID,
		Entries: []LedgerEntry{
			{
				ID:          GenerateUUIDWithSuffix(PrefixLedgerEntry),
				TxID:        txID,
				Account:     debit,
				Debit:       amount,
				Credit:      decimal.Zero,
				Description: description,
				ReferenceID: reference,
			},
			{
				ID:          GenerateUUIDWithSuffix(PrefixLedgerEntry),
				TxID:        txID,
				Account:     credit,
				Debit:       decimal.Zero,
				Credit:      amount,
				Description: description,
				ReferenceID: reference,
			},
		},
	}
}

// At stamps every entry of t with the posting time.
func (t LedgerTransaction) At(createdAt time.Time) LedgerTransaction {
	for i := range t.Entries {
		t.Entries[i].CreatedAt = createdAt
	}
	return t
}

// Totals returns the debit and credit sums of the transaction.
func (t LedgerTransaction) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// Validate enforces the balance invariant: every entry is one-sided and
// non-negative, all entries share the tx_id, and debits equal credits.
func (t LedgerTransaction) Validate() error {
	if t.TxID == "" {
		return errors.New("ledger transaction has no tx_id")
	}
	if len(t.Entries) < 2 {
		return ErrTooFewEntries
	}
	for i, e := range t.Entries {
		if e.TxID != t.TxID {
			return fmt.Errorf("entry %d belongs to tx %q, expected %q", i, e.TxID, t.TxID)
		}
		if !e.Account.Valid() {
			return fmt.Errorf("entry %d: invalid ledger account %q", i, string(e.Account))
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return fmt.Errorf("entry %d: amounts cannot be negative", i)
		}
		if e.Debit.IsPositive() == e.Credit.IsPositive() {
			return fmt.Errorf("entry %d: exactly one of debit or credit must be positive", i)
		}
	}
	debit, credit := t.Totals()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s, credit %s", ErrUnbalancedTransaction, debit, credit)
	}
	return nil
}

// LedgerImbalance reports a tx_id whose entries do not net to zero.
type LedgerImbalance struct {
	TxID   string          `json:"tx_id"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// AccountBalance is one trial-balance line.
type AccountBalance struct {
	Account LedgerAccount   `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Net     decimal.Decimal `json:"net"`
}
