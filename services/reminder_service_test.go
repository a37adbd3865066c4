package services

import (
	"testing"
	"time"

	"garagehub-backend/models"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

func TestSendMOTRemindersSendsOncePerExpiry(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	t.Setenv("TWILIO_AUTH_TOKEN", "testtoken")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "")
	t.Setenv("MOT_REMINDER_DAYS", "30")

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", `=~^https://api\.twilio\.com/.*Messages\.json`,
		httpmock.NewStringResponder(201, `{"sid": "SM123", "status": "queued"}`))

	db := setupTestDB(t)
	service := NewReminderService(db)

	owner := createCustomer(t, db, "C-1", "John", "Smith", "07700900123")
	vehicle := createVehicle(t, db, "AB12CDE", &owner.ID)
	expiry := time.Now().AddDate(0, 0, 14)
	db.Model(&vehicle).Update("mot_expiry", expiry)

	// Owner without a usable phone must be skipped, not failed.
	silent := createCustomer(t, db, "C-2", "No", "Phone", "")
	quietVehicle := createVehicle(t, db, "FG34HIJ", &silent.ID)
	db.Model(&quietVehicle).Update("mot_expiry", expiry)

	service.SendMOTReminders()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	var logs []models.ReminderLog
	db.Find(&logs)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, vehicle.ID, logs[0].VehicleID)
		assert.Equal(t, owner.ID, logs[0].CustomerID)
		assert.Equal(t, "sent", logs[0].Status)
		assert.Equal(t, "sms", logs[0].Channel)
		assert.Equal(t, "mot", logs[0].Type)
		assert.Contains(t, logs[0].Message, "AB12CDE")
	}

	// A second run must not re-message the same expiry.
	service.SendMOTReminders()
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	db.Find(&logs)
	assert.Len(t, logs, 1)
}

func TestSendMOTRemindersLogsFailures(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	t.Setenv("TWILIO_AUTH_TOKEN", "testtoken")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "")

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", `=~^https://api\.twilio\.com/.*Messages\.json`,
		httpmock.NewStringResponder(400, `{"code": 21211, "message": "Invalid 'To' number", "status": 400}`))

	db := setupTestDB(t)
	service := NewReminderService(db)

	owner := createCustomer(t, db, "C-1", "John", "Smith", "07700900123")
	vehicle := createVehicle(t, db, "AB12CDE", &owner.ID)
	db.Model(&vehicle).Update("mot_expiry", time.Now().AddDate(0, 0, 7))

	service.SendMOTReminders()

	var logs []models.ReminderLog
	db.Find(&logs)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, "failed", logs[0].Status)
		assert.NotEmpty(t, logs[0].ErrorMessage)
	}
}
