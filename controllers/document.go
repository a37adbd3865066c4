package controllers

import (
	"errors"
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetDocuments retrieves documents with optional filters
func GetDocuments(c *gin.Context) {
	query := config.DB.Model(&models.Document{})

	if docType := c.Query("type"); docType != "" {
		query = query.Where("doc_type = ?", models.DocTypeFromCode(docType))
	}
	if customerID := c.Query("customerId"); customerID != "" {
		customerUUID, err := uuid.Parse(customerID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
			return
		}
		query = query.Where("customer_id = ?", customerUUID)
	}
	if registration := c.Query("registration"); registration != "" {
		// Resolved documents match on vehicle_id; unresolved ones only
		// carry the free-text registration.
		normalized := utils.NormalizeRegistration(registration)
		var vehicle models.Vehicle
		if err := config.DB.Where("registration = ?", normalized).First(&vehicle).Error; err == nil {
			query = query.Where("vehicle_id = ? OR vehicle_registration = ?", vehicle.ID, normalized)
		} else {
			query = query.Where("vehicle_registration = ?", normalized)
		}
	}
	if c.Query("unlinked") == "true" {
		query = query.Where("customer_id IS NULL OR vehicle_id IS NULL")
	}

	var documents []models.Document
	if err := query.Order("issued_date DESC").Find(&documents).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve documents")
		return
	}

	c.JSON(http.StatusOK, documents)
}

// GetDocument retrieves a document with its line items and extras
func GetDocument(c *gin.Context) {
	documentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	var document models.Document
	if err := config.DB.Preload("Items").Preload("Extras").
		Where("id = ?", documentUUID).First(&document).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Document not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, document)
}

// DeleteDocument soft deletes a document
func DeleteDocument(c *gin.Context) {
	documentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	result := config.DB.Where("id = ?", documentUUID).Delete(&models.Document{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Document not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
