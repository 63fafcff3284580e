package routes

import (
	"PracticeHub360/controllers"

	authorization "github.com/KanapuramVaishnavi/Core/config/authorization"

	"github.com/gin-gonic/gin"
)

func Routes(r *gin.Engine, h *controllers.Handler) {
	//privateroutes
	r.Use(authorization.JWTAuth())
	controllers.Patient(r, h)
	controllers.Consultation(r, h)
	controllers.Maintenance(r, h)
}
