package main

import (
	"github.com/gin-gonic/gin"

	"github.com/clodeb/retail_backend/middlewares"
	"github.com/clodeb/retail_backend/models"
)

func registerRoutes(r *gin.Engine) {

	r.POST("/api/auth/login", loginHandler)

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	api.Use(middlewares.RequireAuth())

	api.GET("/sales", listSalesHandler)
	api.GET("/sales/:id", getSaleHandler)
	api.POST("/sales", createSaleHandler)
	api.DELETE("/sales/:id", middlewares.RequireRole(string(models.UserRoleAdmin)), cancelSaleHandler)

	api.GET("/appointments", listAppointmentsHandler)
	api.GET("/appointments/:id", getAppointmentHandler)
	api.POST("/appointments", createAppointmentHandler)
	api.PUT("/appointments/:id", updateAppointmentHandler)
	api.POST("/appointments/:id/attend", attendAppointmentHandler)
	api.POST("/appointments/:id/cancel", cancelAppointmentHandler)
	api.DELETE("/appointments/:id", deleteAppointmentHandler)

	api.GET("/products", listProductsHandler)
	api.GET("/products/:id", getProductHandler)
	api.POST("/products", createProductHandler)
	api.PUT("/products/:id", updateProductHandler)
	api.DELETE("/products/:id", deactivateProductHandler)
	api.POST("/products/transfer", transferProductHandler)

	api.GET("/stores", listStoresHandler)
	api.GET("/stores/:id", getStoreHandler)
	api.POST("/stores", createStoreHandler)
	api.PUT("/stores/:id", updateStoreHandler)
	api.DELETE("/stores/:id", middlewares.RequireRole(string(models.UserRoleAdmin)), deactivateStoreHandler)

	api.GET("/clients", listClientsHandler)
	api.GET("/clients/:id", getClientHandler)
	api.POST("/clients", createClientHandler)
	api.PUT("/clients/:id", updateClientHandler)

	api.GET("/audit-logs", middlewares.RequireRole(string(models.UserRoleAdmin)), listAuditLogsHandler)

	api.POST("/users", middlewares.RequireRole(string(models.UserRoleAdmin)), createUserHandler)
	api.GET("/users", middlewares.RequireRole(string(models.UserRoleAdmin)), listUsersHandler)
}
