package controllers

import (
	"errors"
	"net/http"
	"time"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateVehicleInput defines the expected JSON structure for creating a vehicle
type CreateVehicleInput struct {
	Registration string     `json:"registration" binding:"required"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	Year         int        `json:"year"`
	Colour       string     `json:"colour"`
	FuelType     string     `json:"fuelType"`
	Derivative   string     `json:"derivative"`
	OwnerID      *uuid.UUID `json:"ownerId"`
	MOTExpiry    *time.Time `json:"motExpiry"`
	TaxDue       *time.Time `json:"taxDue"`
}

// UpdateVehicleInput defines the expected JSON structure for updating a vehicle
type UpdateVehicleInput struct {
	Make       *string    `json:"make"`
	Model      *string    `json:"model"`
	Year       *int       `json:"year"`
	Colour     *string    `json:"colour"`
	FuelType   *string    `json:"fuelType"`
	Derivative *string    `json:"derivative"`
	MOTExpiry  *time.Time `json:"motExpiry"`
	TaxDue     *time.Time `json:"taxDue"`
}

// CreateVehicle creates a new vehicle keyed by normalized registration
func CreateVehicle(c *gin.Context) {
	var input CreateVehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	registration := utils.NormalizeRegistration(input.Registration)
	if registration == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Registration is required")
		return
	}

	var existingVehicle models.Vehicle
	if err := config.DB.Where("registration = ?", registration).
		First(&existingVehicle).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Vehicle with this registration already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	if input.OwnerID != nil {
		var owner models.Customer
		if err := config.DB.Where("id = ?", *input.OwnerID).First(&owner).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Owner does not exist")
			return
		}
	}

	vehicle := models.Vehicle{
		ID:           uuid.New(),
		Registration: registration,
		Make:         input.Make,
		Model:        input.Model,
		Year:         input.Year,
		Colour:       input.Colour,
		FuelType:     input.FuelType,
		Derivative:   input.Derivative,
		OwnerID:      input.OwnerID,
		MOTExpiry:    input.MOTExpiry,
		TaxDue:       input.TaxDue,
	}

	if err := config.DB.Create(&vehicle).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create vehicle")
		return
	}

	c.JSON(http.StatusCreated, vehicle)
}

// GetVehicles retrieves vehicles; ?unlinked=true narrows to orphans
func GetVehicles(c *gin.Context) {
	query := config.DB.Model(&models.Vehicle{})

	if c.Query("unlinked") == "true" {
		query = query.Where("owner_id IS NULL")
	}
	if registration := c.Query("registration"); registration != "" {
		query = query.Where("registration = ?", utils.NormalizeRegistration(registration))
	}

	var vehicles []models.Vehicle
	if err := query.Order("registration").Find(&vehicles).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve vehicles")
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

// GetVehicle retrieves a specific vehicle by ID
func GetVehicle(c *gin.Context) {
	vehicleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid vehicle ID format")
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("id = ?", vehicleUUID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Vehicle not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

// UpdateVehicle updates enrichment fields on an existing vehicle.
// Ownership changes go through the reconcile endpoints so they are
// always attributed and never silently overwrite a link.
func UpdateVehicle(c *gin.Context) {
	vehicleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid vehicle ID format")
		return
	}

	var input UpdateVehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("id = ?", vehicleUUID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Vehicle not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Make != nil {
		vehicle.Make = *input.Make
	}
	if input.Model != nil {
		vehicle.Model = *input.Model
	}
	if input.Year != nil {
		vehicle.Year = *input.Year
	}
	if input.Colour != nil {
		vehicle.Colour = *input.Colour
	}
	if input.FuelType != nil {
		vehicle.FuelType = *input.FuelType
	}
	if input.Derivative != nil {
		vehicle.Derivative = *input.Derivative
	}
	if input.MOTExpiry != nil {
		vehicle.MOTExpiry = input.MOTExpiry
	}
	if input.TaxDue != nil {
		vehicle.TaxDue = input.TaxDue
	}

	if err := config.DB.Save(&vehicle).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update vehicle")
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

// DeleteVehicle soft deletes a vehicle
func DeleteVehicle(c *gin.Context) {
	vehicleUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid vehicle ID format")
		return
	}

	result := config.DB.Where("id = ?", vehicleUUID).Delete(&models.Vehicle{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete vehicle")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Vehicle not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted successfully"})
}
