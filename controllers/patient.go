package controllers

import (
	"net/http"

	"PracticeHub360/models"

	authorization "github.com/KanapuramVaishnavi/Core/config/authorization"
	util "github.com/KanapuramVaishnavi/Core/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Patient(router *gin.Engine, h *Handler) {
	patient := router.Group("/patient")
	{
		patient.POST("/create", authorization.Authorize("patient", "create"), h.CreatePatient)
		patient.GET("/fetch/:patientId", authorization.Authorize("patient", "view"), h.FetchPatient)
		patient.PATCH("/update/:patientId", authorization.Authorize("patient", "update"), h.UpdatePatient)
		patient.POST("/sync/:patientId", authorization.Authorize("patient", "update"), h.SyncPatient)
	}
}

/*
* Bind the patient
* Create it with its initial consultation and invoice
 */
func (h *Handler) CreatePatient(c *gin.Context) {
	var patient models.Patient
	if err := c.ShouldBindJSON(&patient); err != nil {
		c.JSON(http.StatusBadRequest, util.FailedResponse(err))
		return
	}
	p, initial, err := h.svc.CreatePatient(c, &patient, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"patient": p, "initialConsultation": initial})
}

func (h *Handler) FetchPatient(c *gin.Context) {
	patientId := c.Param("patientId")
	key := PatientKey + patientId

	var cached models.Patient
	found, err := h.cache.Get(c, key, &cached)
	if err == nil && found && cached.CreatedBy == caller(c) {
		h.respond(c, http.StatusOK, cached)
		return
	}
	p, err := h.svc.GetPatient(c, patientId, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.cache.Set(c, key, p); err != nil {
		h.logger.Warn("patient not cached", zap.String("patient", patientId), zap.Error(err))
	}
	h.respond(c, http.StatusOK, p)
}

/*
* Bind the changed fields
* Update the patient; the initial consultation follows in the background
* Drop the cached patient
 */
func (h *Handler) UpdatePatient(c *gin.Context) {
	patientId := c.Param("patientId")
	data := make(map[string]interface{})
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, util.FailedResponse(err))
		return
	}
	p, err := h.svc.UpdatePatient(c, patientId, data, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.evict(c, PatientKey+patientId)
	h.respond(c, http.StatusOK, p)
}

func (h *Handler) SyncPatient(c *gin.Context) {
	result := h.svc.SyncInitialConsultation(c, c.Param("patientId"), nil, caller(c))
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	h.respond(c, status, result)
}
