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

// CreateCustomerInput defines the expected JSON structure for creating a customer
type CreateCustomerInput struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName" binding:"required"`
	Phone        string  `json:"phone" binding:"required"`
	Email        *string `json:"email"`
	AddressLine1 string  `json:"addressLine1"`
	City         string  `json:"city"`
	Postcode     string  `json:"postcode"`
	CompanyName  string  `json:"companyName"`
}

// UpdateCustomerInput defines the expected JSON structure for updating a customer
type UpdateCustomerInput struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	AddressLine1 *string `json:"addressLine1"`
	City         *string `json:"city"`
	Postcode     *string `json:"postcode"`
	CompanyName  *string `json:"companyName"`
	IsActive     *bool   `json:"isActive"`
}

// CreateCustomer creates a new customer, deduplicating on normalized phone
func CreateCustomer(c *gin.Context) {
	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	normalizedPhone := utils.NormalizePhone(input.Phone)
	if normalizedPhone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid UK phone number")
		return
	}

	// Lookup before create: never create first and deduplicate later
	var existingCustomer models.Customer
	if err := config.DB.Where("normalized_phone = ?", normalizedPhone).
		First(&existingCustomer).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Customer with this phone number already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	customer := models.Customer{
		ID:              uuid.New(),
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Phone:           input.Phone,
		NormalizedPhone: normalizedPhone,
		AddressLine1:    input.AddressLine1,
		City:            input.City,
		Postcode:        input.Postcode,
		CompanyName:     input.CompanyName,
		IsActive:        true,
	}

	if input.Email != nil {
		customer.Email = utils.LowerTrim(*input.Email)
	}

	if err := config.DB.Create(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomers retrieves customers, optionally filtered by name or phone
func GetCustomers(c *gin.Context) {
	query := config.DB.Model(&models.Customer{})

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR company_name LIKE ?", like, like, like)
	}
	if phone := c.Query("phone"); phone != "" {
		if normalized := utils.NormalizePhone(phone); normalized != "" {
			query = query.Where("normalized_phone = ?", normalized)
		} else {
			query = query.Where("phone = ?", phone)
		}
	}

	var customers []models.Customer
	if err := query.Order("last_name, first_name").Find(&customers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a specific customer with their vehicles
func GetCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var customer models.Customer
	if err := config.DB.Preload("Vehicles").Where("id = ?", customerUUID).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer updates an existing customer
func UpdateCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var customer models.Customer
	if err := config.DB.Where("id = ?", customerUUID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.FirstName != nil {
		customer.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		customer.LastName = *input.LastName
	}
	if input.Phone != nil {
		normalizedPhone := utils.NormalizePhone(*input.Phone)
		if normalizedPhone == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid UK phone number")
			return
		}

		if customer.NormalizedPhone != normalizedPhone {
			var existingCustomer models.Customer
			if err := config.DB.Where("normalized_phone = ? AND id <> ?", normalizedPhone, customerUUID).
				First(&existingCustomer).Error; err == nil {
				utils.RespondWithError(c, http.StatusConflict, "Another customer with this phone number already exists")
				return
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				return
			}
		}
		customer.Phone = *input.Phone
		customer.NormalizedPhone = normalizedPhone
	}
	if input.Email != nil {
		customer.Email = utils.LowerTrim(*input.Email)
	}
	if input.AddressLine1 != nil {
		customer.AddressLine1 = *input.AddressLine1
	}
	if input.City != nil {
		customer.City = *input.City
	}
	if input.Postcode != nil {
		customer.Postcode = *input.Postcode
	}
	if input.CompanyName != nil {
		customer.CompanyName = *input.CompanyName
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&customer).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer soft deletes a customer
func DeleteCustomer(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	result := config.DB.Where("id = ?", customerUUID).Delete(&models.Customer{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete customer")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
