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

	"github.com/gin-gonic/gin"

	pgimodel "github.com/borealinsurance/pgi/model"
)

func (a Api) CreatePayoutBatch(c *gin.Context) {
	resp, err := a.pgi.CreatePayoutBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// MarkBatchPaid settles a batch. Calling it again on a paid batch returns the
// batch unchanged.
func (a Api) MarkBatchPaid(c *gin.Context) {
	resp, err := a.pgi.MarkBatchPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetPayoutBatch(c *gin.Context) {
	resp, err := a.pgi.GetPayoutBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ListPayoutBatches(c *gin.Context) {
	limit, offset := pagination(c)
	resp, err := a.pgi.ListPayoutBatches(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetPayables(c *gin.Context) {
	limit, offset := pagination(c)
	filter := pgimodel.PayableFilter{
		Status:  pgimodel.PayableStatus(c.Query("status")),
		BatchID: c.Query("batch_id"),
		Limit:   limit,
		Offset:  offset,
	}

	resp, err := a.pgi.GetPayables(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
