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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// RecordLedgerTransaction appends the entries of txn. Unbalanced transactions are
// rejected before anything is written.
func (d Datasource) RecordLedgerTransaction(ctx context.Context, txn model.LedgerTransaction) error {
	ctx, span := otel.Tracer("pgi.database").Start(ctx, "RecordLedgerTransaction")
	defer span.End()

	if err := txn.Validate(); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	for _, entry := range txn.Entries {
		if entry.CreatedAt.IsZero() {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Ledger entry '%s' has no posting time", entry.ID), nil)
		}
	}

	for _, entry := range txn.Entries {
		_, err := d.db().ExecContext(ctx, `
			INSERT INTO pgi.ledger_entries (id, tx_id, account, debit, credit, description, reference_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, entry.TxID, entry.Account, entry.Debit, entry.Credit, entry.Description, entry.ReferenceID, entry.CreatedAt)
		if err != nil {
			pqErr, ok := err.(*pq.Error)
			if ok {
				switch pqErr.Code.Name() {
				case "unique_violation":
					return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Ledger entry '%s' already exists", entry.ID), err)
				case "check_violation", "not_null_violation":
					return apierror.NewAPIError(apierror.ErrInvalidInput, "Ledger entry violates ledger constraints", err)
				}
			}
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record ledger entry", err)
		}
	}

	return nil
}

func (d Datasource) GetLedgerEntriesByTxID(ctx context.Context, txID string) ([]model.LedgerEntry, error) {
	entries, err := d.queryLedgerEntries(ctx, `
		SELECT id, tx_id, account, debit, credit, description, reference_id, created_at
		FROM pgi.ledger_entries
		WHERE tx_id = $1
		ORDER BY created_at, id
	`, txID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Ledger transaction '%s' not found", txID), sql.ErrNoRows)
	}
	return entries, nil
}

func (d Datasource) GetLedgerEntriesByReference(ctx context.Context, referenceID string) ([]model.LedgerEntry, error) {
	return d.queryLedgerEntries(ctx, `
		SELECT id, tx_id, account, debit, credit, description, reference_id, created_at
		FROM pgi.ledger_entries
		WHERE reference_id = $1
		ORDER BY created_at, id
	`, referenceID)
}

func (d Datasource) queryLedgerEntries(ctx context.Context, query string, args ...interface{}) ([]model.LedgerEntry, error) {
	rows, err := d.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ledger entries", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		err = rows.Scan(&e.ID, &e.TxID, &e.Account, &e.Debit, &e.Credit, &e.Description, &e.ReferenceID, &e.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ledger entry", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over ledger entries", err)
	}
	return entries, nil
}

// GetUnbalancedTransactions lists every tx_id whose debits and credits differ.
// A healthy ledger returns an empty slice.
func (d Datasource) GetUnbalancedTransactions(ctx context.Context) ([]model.LedgerImbalance, error) {
	rows, err := d.db().QueryContext(ctx, `
		SELECT tx_id, SUM(debit), SUM(credit)
		FROM pgi.ledger_entries
		GROUP BY tx_id
		HAVING SUM(debit) <> SUM(credit)
		ORDER BY tx_id
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to verify ledger", err)
	}
	defer rows.Close()

	imbalances := []model.LedgerImbalance{}
	for rows.Next() {
		var i model.LedgerImbalance
		if err = rows.Scan(&i.TxID, &i.Debit, &i.Credit); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ledger imbalance", err)
		}
		imbalances = append(imbalances, i)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while verifying ledger", err)
	}
	return imbalances, nil
}

func (d Datasource) GetAccountBalances(ctx context.Context) ([]model.AccountBalance, error) {
	rows, err := d.db().QueryContext(ctx, `
		SELECT account, COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0)
		FROM pgi.ledger_entries
		GROUP BY account
		ORDER BY account
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account balances", err)
	}
	defer rows.Close()

	balances := []model.AccountBalance{}
	for rows.Next() {
		var b model.AccountBalance
		if err = rows.Scan(&b.Account, &b.Debit, &b.Credit); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account balance", err)
		}
		b.Net = b.Debit.Sub(b.Credit)
		balances = append(balances, b)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over account balances", err)
	}
	return balances, nil
}
