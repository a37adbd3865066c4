package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"garagehub-backend/config"
	"garagehub-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db.AutoMigrate(
		&models.Customer{},
		&models.Vehicle{},
		&models.Document{},
		&models.DocumentItem{},
		&models.DocumentExtra{},
		&models.ReconcileLog{},
		&models.ReminderLog{},
	)
	config.DB = db
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler(c)
	return w
}

func TestCreateCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupTestDB(t)

	tests := []struct {
		name           string
		requestBody    CreateCustomerInput
		expectedStatus int
	}{
		{
			name: "valid customer creation",
			requestBody: CreateCustomerInput{
				FirstName: "John",
				LastName:  "Smith",
				Phone:     "07894 902066",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate normalized phone",
			requestBody: CreateCustomerInput{
				FirstName: "Jon",
				LastName:  "Smythe",
				Phone:     "07894902066", // same number, different formatting
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "unclassifiable phone",
			requestBody: CreateCustomerInput{
				FirstName: "Jane",
				LastName:  "Doe",
				Phone:     "12345",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing required fields",
			requestBody: CreateCustomerInput{
				FirstName: "Jane",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, CreateCustomer, "/api/customers", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	var customer models.Customer
	assert.NoError(t, config.DB.Where("last_name = ?", "Smith").First(&customer).Error)
	assert.Equal(t, "+447894902066", customer.NormalizedPhone)
}

func TestGetCustomersPhoneFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupTestDB(t)

	config.DB.Create(&models.Customer{
		FirstName:       "John",
		LastName:        "Smith",
		Phone:           "07894 902066",
		NormalizedPhone: "+447894902066",
		IsActive:        true,
	})
	config.DB.Create(&models.Customer{
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "07700 900123",
		NormalizedPhone: "+447700900123",
		IsActive:        true,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest("GET", "/api/customers?phone=07894902066", nil)
	c.Request = req

	GetCustomers(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var customers []models.Customer
	json.Unmarshal(w.Body.Bytes(), &customers)
	if assert.Len(t, customers, 1) {
		assert.Equal(t, "Smith", customers[0].LastName)
	}
}
