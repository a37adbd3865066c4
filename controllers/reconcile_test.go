package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReconcileVehiclesEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupTestDB(t)

	customer := models.Customer{FirstName: "Alice", LastName: "Allen", IsActive: true}
	config.DB.Create(&customer)
	config.DB.Create(&models.Vehicle{Registration: "AB12CDE"})
	config.DB.Create(&models.Document{
		ExternalID:          "D1",
		DocType:             models.DocTypeInvoice,
		VehicleRegistration: "AB12 CDE",
		CustomerID:          &customer.ID,
	})

	w := postJSON(t, ReconcileVehicles, "/api/reconcile/vehicles", services.ReconcileOptions{})
	assert.Equal(t, http.StatusOK, w.Code)

	var summary services.ReconcileSummary
	json.Unmarshal(w.Body.Bytes(), &summary)
	assert.Equal(t, 1, summary.Linked)

	var vehicle models.Vehicle
	config.DB.Where("registration = ?", "AB12CDE").First(&vehicle)
	if assert.NotNil(t, vehicle.OwnerID) {
		assert.Equal(t, customer.ID, *vehicle.OwnerID)
	}
}

func TestFixVehicleOwnerEndpointNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupTestDB(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "registration", Value: "ZZ99ZZZ"}}

	jsonBody, _ := json.Marshal(FixVehicleOwnerInput{})
	req, _ := http.NewRequest("POST", "/api/reconcile/vehicles/ZZ99ZZZ/fix", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	FixVehicleOwner(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
