package controllers

import (
	"net/http"
	"time"

	authorization "github.com/KanapuramVaishnavi/Core/config/authorization"
	util "github.com/KanapuramVaishnavi/Core/util"

	"github.com/gin-gonic/gin"
)

func Maintenance(router *gin.Engine, h *Handler) {
	maintenance := router.Group("/maintenance")
	{
		maintenance.POST("/migrate", authorization.Authorize("maintenance", "update"), h.MigrateAll)
		maintenance.POST("/deduplicate", authorization.Authorize("maintenance", "update"), h.Deduplicate)
		maintenance.POST("/invoices", authorization.Authorize("maintenance", "update"), h.GenerateMissingInvoices)
		maintenance.POST("/initial", authorization.Authorize("maintenance", "update"), h.MarkInitialConsultations)
		maintenance.POST("/sync", authorization.Authorize("maintenance", "update"), h.SyncAll)
		maintenance.GET("/status", authorization.Authorize("maintenance", "view"), h.Status)
		maintenance.GET("/diagnostics", authorization.Authorize("maintenance", "view"), h.Diagnostics)
	}
}

func (h *Handler) MigrateAll(c *gin.Context) {
	report, err := h.svc.MigrateAll(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, report)
}

/*
* Run the deduplication
* Invoices left for review answer 202 with the report
 */
func (h *Handler) Deduplicate(c *gin.Context) {
	report, err := h.svc.Deduplicate(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if reviewErr := report.Err(); reviewErr != nil {
		h.respond(c, statusFor(reviewErr), report)
		return
	}
	h.respond(c, http.StatusOK, report)
}

func (h *Handler) GenerateMissingInvoices(c *gin.Context) {
	report, err := h.svc.GenerateMissingInvoices(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, report)
}

func (h *Handler) MarkInitialConsultations(c *gin.Context) {
	flagged, errs, err := h.svc.MarkInitialConsultations(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"flagged": flagged, "errors": errs})
}

// SyncAll accepts an optional RFC3339 "before" cutoff on patient creation.
func (h *Handler) SyncAll(c *gin.Context) {
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, util.FailedResponse(err))
			return
		}
		before = &t
	}
	report, err := h.svc.SyncAllInitialConsultations(c, caller(c), before)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, report)
}

// Status is computed on every request; maintenance runs from the nightly job and
// the CLI change the same records outside this handler.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.MigrationStatus(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, status)
}

func (h *Handler) Diagnostics(c *gin.Context) {
	runs, err := h.svc.Diagnostics(c, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, runs)
}
