package controllers

import (
	"errors"
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
)

// FixVehicleOwnerInput defines the single-vehicle fix request
type FixVehicleOwnerInput struct {
	Contact *services.ContactHint `json:"contact"`
	Force   bool                  `json:"force"`
}

// ReconcileVehicles runs the bulk owner-linking pass. Round-robin
// assignment only happens when the request asks for it.
func ReconcileVehicles(c *gin.Context) {
	var opts services.ReconcileOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	summary, err := services.NewReconcileService(config.DB).LinkVehicleOwners(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ReconcileDocuments runs the bulk document-linking pass.
func ReconcileDocuments(c *gin.Context) {
	var opts services.ReconcileOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	summary, err := services.NewReconcileService(config.DB).LinkDocuments(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// FixVehicleOwner links a single vehicle, with an optional contact hint
// and an explicit force flag for repairing a known-bad link.
func FixVehicleOwner(c *gin.Context) {
	registration := c.Param("registration")

	var input FixVehicleOwnerInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	summary, err := services.NewReconcileService(config.DB).
		FixVehicleOwner(registration, input.Contact, input.Force)
	if err != nil {
		if errors.Is(err, services.ErrVehicleNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Vehicle not found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
