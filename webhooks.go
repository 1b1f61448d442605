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
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// ApplicationWebhook is an application status change pushed by the intake system.
// ExternalID is the application id.
type ApplicationWebhook struct {
	EventID    string `json:"event_id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// WebhookReceipt acknowledges a webhook delivery.
type WebhookReceipt struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate"`
}

// HandleApplicationWebhook applies an application status change once per event id.
// Redelivered events are acknowledged without touching the application.
func (p *PGI) HandleApplicationWebhook(ctx context.Context, event ApplicationWebhook) (*WebhookReceipt, error) {
	ctx, span := tracer.Start(ctx, "HandleApplicationWebhook")
	defer span.End()

	if event.EventID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "event_id is required", nil)
	}
	if event.ExternalID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "external_id is required", nil)
	}
	status, err := model.ParseApplicationStatus(event.Status)
	if err != nil {
		return nil, invalidInput(err)
	}

	err = p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		allowed, err := checkIdempotency(ctx, ds, "webhook:"+event.EventID, EndpointApplicationWebhook)
		if err != nil {
			return err
		}
		if !allowed {
			return errDuplicateRequest
		}
		return ds.UpdateApplicationStatus(ctx, event.ExternalID, status)
	})
	if errors.Is(err, errDuplicateRequest) {
		logrus.WithField("event_id", event.EventID).Debug("duplicate application webhook ignored")
		return &WebhookReceipt{Received: true, Duplicate: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"application_id": event.ExternalID, "status": status}).Info("application status updated")
	return &WebhookReceipt{Received: true}, nil
}
