// services/reminder_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

const defaultReminderWindowDays = 30

type ReminderService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewReminderService(db *gorm.DB) *ReminderService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &ReminderService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (s *ReminderService) StartScheduler() {
	c := cron.New()

	// Run every day at 9 AM
	c.AddFunc("0 9 * * *", s.SendMOTReminders)

	c.Start()
	log.Println("MOT reminder scheduler started")
}

// SendMOTReminders messages owners of vehicles whose MOT expires inside
// the configured window. A vehicle is only reminded once per expiry
// date, tracked through the reminder log.
func (s *ReminderService) SendMOTReminders() {
	log.Println("Starting MOT reminder processing...")

	windowDays := defaultReminderWindowDays
	if env := os.Getenv("MOT_REMINDER_DAYS"); env != "" {
		if d, err := strconv.Atoi(env); err == nil && d > 0 {
			windowDays = d
		}
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, windowDays)

	var vehicles []models.Vehicle
	err := s.db.
		Where("owner_id IS NOT NULL AND mot_expiry IS NOT NULL AND mot_expiry BETWEEN ? AND ?", now, cutoff).
		Find(&vehicles).Error
	if err != nil {
		log.Printf("Failed to fetch vehicles due an MOT: %v", err)
		return
	}

	sent := 0
	for _, vehicle := range vehicles {
		if s.remindVehicle(vehicle) {
			sent++
		}
	}

	log.Printf("MOT reminder processing completed: %d of %d sent", sent, len(vehicles))
}

func (s *ReminderService) remindVehicle(vehicle models.Vehicle) bool {
	var owner models.Customer
	if err := s.db.First(&owner, "id = ?", *vehicle.OwnerID).Error; err != nil {
		log.Printf("Vehicle %s: owner lookup failed: %v", vehicle.Registration, err)
		return false
	}
	if owner.NormalizedPhone == "" {
		return false
	}

	// Already reminded for this expiry?
	var previous int64
	err := s.db.Model(&models.ReminderLog{}).
		Where("vehicle_id = ? AND due_date = ? AND status = ?", vehicle.ID, *vehicle.MOTExpiry, "sent").
		Count(&previous).Error
	if err != nil {
		log.Printf("Vehicle %s: reminder log lookup failed: %v", vehicle.Registration, err)
		return false
	}
	if previous > 0 {
		return false
	}

	daysLeft := utils.DaysBetween(time.Now(), *vehicle.MOTExpiry)
	message := fmt.Sprintf("Hi %s, the MOT for your %s %s (%s) expires in %d days on %s. Give us a call to book it in.",
		owner.FirstName, vehicle.Make, vehicle.Model, vehicle.Registration,
		daysLeft, vehicle.MOTExpiry.Format("02/01/2006"))

	channel := "sms"
	to := owner.NormalizedPhone
	from := os.Getenv("TWILIO_PHONE_NUMBER")
	if whatsapp := os.Getenv("TWILIO_WHATSAPP_NUMBER"); whatsapp != "" {
		channel = "whatsapp"
		to = "whatsapp:" + to
		from = "whatsapp:" + whatsapp
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if err != nil {
		log.Printf("Failed to send MOT reminder to %s: %v", owner.NormalizedPhone, err)
		status = "failed"
		errorMsg = err.Error()
	} else if resp.Sid != nil {
		log.Printf("MOT reminder sent for %s, SID: %s", vehicle.Registration, *resp.Sid)
	} else {
		log.Printf("MOT reminder sent for %s, but no SID returned", vehicle.Registration)
	}

	reminderLog := models.ReminderLog{
		VehicleID:    vehicle.ID,
		CustomerID:   owner.ID,
		Type:         "mot",
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      channel,
		DueDate:      *vehicle.MOTExpiry,
		SentAt:       time.Now(),
	}

	if err := s.db.Create(&reminderLog).Error; err != nil {
		log.Printf("Failed to log reminder for vehicle %s: %v", vehicle.Registration, err)
	}

	return status == "sent"
}

// UpcomingMOTCount is used by the report endpoint.
func (s *ReminderService) UpcomingMOTCount(windowDays int) (int64, error) {
	if windowDays <= 0 {
		return 0, errors.New("window must be positive")
	}
	now := time.Now()
	var count int64
	err := s.db.Model(&models.Vehicle{}).
		Where("mot_expiry IS NOT NULL AND mot_expiry BETWEEN ? AND ?", now, now.AddDate(0, 0, windowDays)).
		Count(&count).Error
	return count, err
}
