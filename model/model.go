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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Id prefixes used across the service.
const (
	PrefixJobRun      = "job"
	PrefixLedgerTx    = "txn"
	PrefixLedgerEntry = "led"
	PrefixPayable     = "pay"
	PrefixBatch       = "batch"
	PrefixPolicy      = "pol"
	PrefixSchedule    = "sch"
)

// AmountScale is the number of decimal places schedule installments are rounded to.
const AmountScale = 2

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// ComputeCommission returns premium * rate at full precision.
// A negative rate is treated as no commission.
func ComputeCommission(premium, rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() || rate.IsZero() {
		return decimal.Zero
	}
	return premium.Mul(rate)
}

// scanString normalises the src values database/sql hands to a Scanner.
func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("cannot scan NULL into enum")
	default:
		return "", fmt.Errorf("cannot scan %T into enum", src)
	}
}

func unmarshalString(data []byte) (string, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	return raw, nil
}
