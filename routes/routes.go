package routes

import (
	"buffettbackend/controllers"

	"github.com/gin-gonic/gin"
)

func Routes(r *gin.Engine) {

	v1 := r.Group("/api")

	{
		v1.GET("/keepServerRunning", controllers.HealthController.IsRunning)
		v1.GET("/search", controllers.SearchController.SearchCompanies)
		v1.GET("/analyze/:symbol", controllers.AnalysisController.Analyze)
		v1.GET("/analyze/:symbol/statements/:statement/export", controllers.AnalysisController.ExportStatement)
		v1.POST("/analyze/:symbol/export/upload", controllers.AnalysisController.UploadWorkbook)
	}
}
