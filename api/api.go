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
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/api/middleware"
	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/internal/apierror"
)

// IdempotencyHeader carries the client supplied key on policy mutations.
const IdempotencyHeader = "Idempotency-Key"

type Api struct {
	pgi    *pgi.PGI
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/policies/activate", a.ActivatePolicy)
	router.GET("/policies/:id", a.GetPolicy)
	router.POST("/policies/:id/renew", a.RenewPolicy)
	router.POST("/policies/:id/cancel", a.CancelPolicy)

	router.POST("/webhooks/applications", a.ApplicationWebhook)

	router.POST("/payout-batches", a.CreatePayoutBatch)
	router.GET("/payout-batches", a.ListPayoutBatches)
	router.GET("/payout-batches/:id", a.GetPayoutBatch)
	router.POST("/payout-batches/:id/paid", a.MarkBatchPaid)
	router.GET("/payables", a.GetPayables)

	router.GET("/ledger/transactions/:tx_id", a.GetLedgerTransaction)
	router.GET("/ledger/verify", a.VerifyLedger)
	router.GET("/ledger/trial-balance", a.TrialBalance)

	router.POST("/jobs/accrual", a.RunAccrual)
	router.GET("/jobs", a.GetJobRuns)
	router.GET("/jobs/:id", a.GetJobRun)
	return a.router
}

func NewAPI(p *pgi.PGI, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{pgi: p, router: r}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

// pagination reads limit and offset query parameters. Missing or malformed
// values fall through as zero and the service applies its defaults.
func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}
