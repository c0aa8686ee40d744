package controllers

import (
	"buffettbackend/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthControllerI interface {
	IsRunning(ctx *gin.Context)
}

type healthController struct{}

var HealthController HealthControllerI = &healthController{}

func (h *healthController) IsRunning(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "Server is running", "rules": len(services.RatioCatalog)})
}
