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
)

// RunAccrual runs the accrual job inline, or queues it when async=true.
// A run skipped because another worker holds the lock answers 202.
func (a Api) RunAccrual(c *gin.Context) {
	if c.Query("async") == "true" {
		info, err := a.pgi.EnqueueAccrual(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
		return
	}

	run, err := a.pgi.RunAccrualJob(c.Request.Context())
	if err != nil {
		if run != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run": run})
			return
		}
		respondError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusAccepted, gin.H{"skipped": true, "reason": "accrual job already running"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (a Api) GetJobRuns(c *gin.Context) {
	limit, offset := pagination(c)
	resp, err := a.pgi.GetJobRuns(c.Request.Context(), c.Query("job_type"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetJobRun(c *gin.Context) {
	resp, err := a.pgi.GetJobRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
