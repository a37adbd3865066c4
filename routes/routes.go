package routes

import (
	"garagehub-backend/config"
	"garagehub-backend/controllers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	api := r.Group("/api")
	{
		// Customer routes
		customers := api.Group("/customers")
		{
			customers.POST("", controllers.CreateCustomer)
			customers.GET("", controllers.GetCustomers)
			customers.GET("/:id", controllers.GetCustomer)
			customers.PUT("/:id", controllers.UpdateCustomer)
			customers.DELETE("/:id", controllers.DeleteCustomer)
		}

		// Vehicle routes
		vehicles := api.Group("/vehicles")
		{
			vehicles.POST("", controllers.CreateVehicle)
			vehicles.GET("", controllers.GetVehicles)
			vehicles.GET("/:id", controllers.GetVehicle)
			vehicles.PUT("/:id", controllers.UpdateVehicle)
			vehicles.DELETE("/:id", controllers.DeleteVehicle)
		}

		// Document routes
		documents := api.Group("/documents")
		{
			documents.GET("", controllers.GetDocuments)
			documents.GET("/:id", controllers.GetDocument)
			documents.DELETE("/:id", controllers.DeleteDocument)
		}

		// CSV import routes
		importGroup := api.Group("/import")
		{
			importGroup.POST("/customers", controllers.ImportCustomers)
			importGroup.POST("/vehicles", controllers.ImportVehicles)
			importGroup.POST("/documents", controllers.ImportDocuments)
			importGroup.POST("/line-items", controllers.ImportLineItems)
			importGroup.POST("/extras", controllers.ImportExtras)
		}

		// Reconciliation routes
		reconcile := api.Group("/reconcile")
		{
			reconcile.POST("/vehicles", controllers.ReconcileVehicles)
			reconcile.POST("/documents", controllers.ReconcileDocuments)
			reconcile.POST("/vehicles/:registration/fix", controllers.FixVehicleOwner)
		}

		// Reports routes
		reportController := controllers.ReportController{}
		api.GET("/reports/linkage", reportController.GetLinkageReport)
	}

	return r
}
