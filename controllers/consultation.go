package controllers

import (
	"net/http"

	"PracticeHub360/services"

	authorization "github.com/KanapuramVaishnavi/Core/config/authorization"
	util "github.com/KanapuramVaishnavi/Core/util"

	"github.com/gin-gonic/gin"
)

func Consultation(router *gin.Engine, h *Handler) {
	consultation := router.Group("/consultation")
	{
		consultation.POST("/create", authorization.Authorize("consultation", "create"), h.CreateConsultation)
		consultation.PATCH("/update/:consultationId", authorization.Authorize("consultation", "update"), h.UpdateConsultation)
		consultation.GET("/resolve/:consultationId", authorization.Authorize("consultation", "view"), h.ResolveConsultation)
		consultation.GET("/needsMigration/:consultationId", authorization.Authorize("consultation", "view"), h.NeedsMigration)
		consultation.POST("/migrate/:consultationId", authorization.Authorize("consultation", "update"), h.MigrateConsultation)
	}
}

/*
* Bind the consultation input
* Create it; a consultation of the same patient within the window is a conflict
 */
func (h *Handler) CreateConsultation(c *gin.Context) {
	var in services.ConsultationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, util.FailedResponse(err))
		return
	}
	consultation, err := h.svc.CreateConsultation(c, in, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, consultation)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	data := make(map[string]interface{})
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, util.FailedResponse(err))
		return
	}
	consultation, err := h.svc.UpdateConsultation(c, c.Param("consultationId"), data, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, consultation)
}

func (h *Handler) ResolveConsultation(c *gin.Context) {
	view, err := h.svc.ResolveConsultation(c, c.Param("consultationId"), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, view)
}

func (h *Handler) NeedsMigration(c *gin.Context) {
	needs, err := h.svc.NeedsMigration(c, c.Param("consultationId"), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"needsMigration": needs})
}

func (h *Handler) MigrateConsultation(c *gin.Context) {
	migrated, err := h.svc.MigrateOne(c, c.Param("consultationId"), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"migrated": migrated})
}
