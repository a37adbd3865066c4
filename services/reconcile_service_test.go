package services

import (
	"testing"
	"time"

	"garagehub-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createCustomer(t *testing.T, db *gorm.DB, externalID, firstName, lastName, phone string) models.Customer {
	customer := models.Customer{
		ExternalID: &externalID,
		FirstName:  firstName,
		LastName:   lastName,
		Phone:      phone,
		IsActive:   true,
	}
	if phone != "" {
		customer.NormalizedPhone = "+44" + phone[1:]
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	return customer
}

func createVehicle(t *testing.T, db *gorm.DB, registration string, ownerID *uuid.UUID) models.Vehicle {
	vehicle := models.Vehicle{Registration: registration, OwnerID: ownerID}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("failed to create vehicle: %v", err)
	}
	return vehicle
}

func createDocument(t *testing.T, db *gorm.DB, externalID, registration string, customerID *uuid.UUID) models.Document {
	document := models.Document{
		ExternalID:          externalID,
		DocType:             models.DocTypeInvoice,
		VehicleRegistration: registration,
		CustomerID:          customerID,
	}
	if err := db.Create(&document).Error; err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	return document
}

func TestLinkVehicleOwnersDocumentHistoryPriority(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customerX := createCustomer(t, db, "C-X", "Xavier", "Smith", "")
	customerY := createCustomer(t, db, "C-Y", "Yvonne", "Jones", "")
	vehicle := createVehicle(t, db, "AB12CDE", nil)

	createDocument(t, db, "D1", "AB12 CDE", &customerX.ID)
	createDocument(t, db, "D2", "ab12cde", &customerX.ID)
	createDocument(t, db, "D3", "AB12CDE", &customerX.ID)
	createDocument(t, db, "D4", "AB12CDE", &customerY.ID)

	summary, err := service.LinkVehicleOwners(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.CandidatesExamined)
	assert.Equal(t, 1, summary.Linked)
	assert.Equal(t, 0, summary.Errors)

	var linked models.Vehicle
	db.First(&linked, "id = ?", vehicle.ID)
	if assert.NotNil(t, linked.OwnerID) {
		assert.Equal(t, customerX.ID, *linked.OwnerID)
	}

	var entry models.ReconcileLog
	assert.NoError(t, db.Where("vehicle_id = ?", vehicle.ID).First(&entry).Error)
	assert.Equal(t, models.StrategyDocumentHistory, entry.Strategy)
	assert.Equal(t, customerX.ID, entry.CustomerID)
}

func TestLinkVehicleOwnersTieBreaksOnLowestCustomerID(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customerA := createCustomer(t, db, "C-A", "Alice", "Allen", "")
	customerB := createCustomer(t, db, "C-B", "Bob", "Brown", "")
	vehicle := createVehicle(t, db, "FG34HIJ", nil)

	createDocument(t, db, "D1", "FG34HIJ", &customerA.ID)
	createDocument(t, db, "D2", "FG34HIJ", &customerB.ID)

	expected := customerA.ID
	if customerB.ID.String() < expected.String() {
		expected = customerB.ID
	}

	for run := 0; run < 2; run++ {
		if run > 0 {
			db.Model(&models.Vehicle{}).Where("id = ?", vehicle.ID).Update("owner_id", nil)
		}
		summary, err := service.LinkVehicleOwners(ReconcileOptions{})
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Linked)

		var linked models.Vehicle
		db.First(&linked, "id = ?", vehicle.ID)
		if assert.NotNil(t, linked.OwnerID) {
			assert.Equal(t, expected, *linked.OwnerID)
		}
	}
}

func TestLinkVehicleOwnersIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customer := createCustomer(t, db, "C-1", "Carol", "Clark", "")
	createVehicle(t, db, "AB12CDE", nil)
	createVehicle(t, db, "ZZ99ZZZ", nil) // no document history
	createDocument(t, db, "D1", "AB12CDE", &customer.ID)

	first, err := service.LinkVehicleOwners(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 2, first.CandidatesExamined)
	assert.Equal(t, 1, first.Linked)
	assert.Equal(t, 1, first.SkippedNoCandidate)

	second, err := service.LinkVehicleOwners(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, second.CandidatesExamined) // linked vehicle no longer an orphan
	assert.Equal(t, 0, second.Linked)
	assert.Equal(t, 1, second.SkippedNoCandidate)
}

func TestFixVehicleOwnerNeverOverwritesWithoutForce(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customerA := createCustomer(t, db, "C-A", "Alice", "Allen", "")
	customerB := createCustomer(t, db, "C-B", "Bob", "Brown", "")
	vehicle := createVehicle(t, db, "KL56MNO", &customerA.ID)

	// Document history now points at B, but the existing link must win.
	createDocument(t, db, "D1", "KL56MNO", &customerB.ID)
	createDocument(t, db, "D2", "KL56MNO", &customerB.ID)

	summary, err := service.FixVehicleOwner("kl56 mno", nil, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyLinked)
	assert.Equal(t, 0, summary.Linked)

	var unchanged models.Vehicle
	db.First(&unchanged, "id = ?", vehicle.ID)
	assert.Equal(t, customerA.ID, *unchanged.OwnerID)

	// Explicit repair pass is allowed to relink.
	summary, err = service.FixVehicleOwner("KL56MNO", nil, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Linked)

	var relinked models.Vehicle
	db.First(&relinked, "id = ?", vehicle.ID)
	assert.Equal(t, customerB.ID, *relinked.OwnerID)
}

func TestFixVehicleOwnerContactMatchAndCreate(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	existing := createCustomer(t, db, "C-1", "Dave", "Davis", "07700900123")
	vehicle := createVehicle(t, db, "AB12CDE", nil)

	// Exact phone match wins before any creation.
	summary, err := service.FixVehicleOwner("AB12CDE", &ContactHint{Phone: "07700 900123"}, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Linked)

	var linked models.Vehicle
	db.First(&linked, "id = ?", vehicle.ID)
	assert.Equal(t, existing.ID, *linked.OwnerID)

	// Full payload with no match creates the customer.
	other := createVehicle(t, db, "FG34HIJ", nil)
	summary, err = service.FixVehicleOwner("FG34HIJ", &ContactHint{
		FirstName: "Erin",
		LastName:  "Evans",
		Phone:     "07700900999",
	}, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Linked)

	var created models.Customer
	assert.NoError(t, db.Where("normalized_phone = ?", "+447700900999").First(&created).Error)

	db.First(&other, "id = ?", other.ID)
	assert.Equal(t, created.ID, *other.OwnerID)

	var entry models.ReconcileLog
	assert.NoError(t, db.Where("vehicle_id = ?", other.ID).First(&entry).Error)
	assert.Equal(t, models.StrategyContactMatch, entry.Strategy)
}

func TestFixVehicleOwnerPartialHintDoesNotFabricate(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	createVehicle(t, db, "AB12CDE", nil)

	summary, err := service.FixVehicleOwner("AB12CDE", &ContactHint{Phone: "07700900999"}, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedNoCandidate)

	var count int64
	db.Model(&models.Customer{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRoundRobinIsOptInAndFlagged(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	pooled := createCustomer(t, db, "C-1", "Frank", "Field", "")
	createVehicle(t, db, "OWNED01", &pooled.ID) // gives the customer pool membership
	orphan := createVehicle(t, db, "AB12CDE", nil)

	// Default pass leaves the orphan alone.
	summary, err := service.LinkVehicleOwners(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Linked)
	assert.Equal(t, 1, summary.SkippedNoCandidate)

	// Opted in, it assigns from the pool and labels the assignment.
	summary, err = service.LinkVehicleOwners(ReconcileOptions{UseRoundRobin: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Linked)

	var linked models.Vehicle
	db.First(&linked, "id = ?", orphan.ID)
	assert.Equal(t, pooled.ID, *linked.OwnerID)

	var entry models.ReconcileLog
	assert.NoError(t, db.Where("vehicle_id = ?", orphan.ID).First(&entry).Error)
	assert.Equal(t, models.StrategyRoundRobin, entry.Strategy)
}

func TestRoundRobinDistributesAcrossPool(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customerA := createCustomer(t, db, "C-A", "Alice", "Allen", "")
	customerB := createCustomer(t, db, "C-B", "Bob", "Brown", "")
	createVehicle(t, db, "OWNED01", &customerA.ID)
	createVehicle(t, db, "OWNED02", &customerB.ID)

	for _, registration := range []string{"RR00AAA", "RR00BBB", "RR00CCC", "RR00DDD"} {
		createVehicle(t, db, registration, nil)
	}

	summary, err := service.LinkVehicleOwners(ReconcileOptions{UseRoundRobin: true})
	assert.NoError(t, err)
	assert.Equal(t, 4, summary.Linked)

	var countA, countB int64
	db.Model(&models.Vehicle{}).Where("owner_id = ?", customerA.ID).Count(&countA)
	db.Model(&models.Vehicle{}).Where("owner_id = ?", customerB.ID).Count(&countB)
	assert.Equal(t, int64(3), countA)
	assert.Equal(t, int64(3), countB)
}

func TestLinkDocumentsCopiesOwnerByRegistration(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	owner := createCustomer(t, db, "C-1", "Grace", "Green", "")
	vehicle := createVehicle(t, db, "AB12CDE", &owner.ID)

	orphanDoc := createDocument(t, db, "D1", " ab12 cde ", nil)
	noMatchDoc := createDocument(t, db, "D2", "XX11XXX", nil)

	summary, err := service.LinkDocuments(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.CandidatesExamined)
	assert.Equal(t, 1, summary.Linked)
	assert.Equal(t, 1, summary.SkippedNoCandidate)

	var linked models.Document
	db.First(&linked, "id = ?", orphanDoc.ID)
	if assert.NotNil(t, linked.CustomerID) {
		assert.Equal(t, owner.ID, *linked.CustomerID)
	}
	if assert.NotNil(t, linked.VehicleID) {
		assert.Equal(t, vehicle.ID, *linked.VehicleID)
	}

	var untouched models.Document
	db.First(&untouched, "id = ?", noMatchDoc.ID)
	assert.Nil(t, untouched.CustomerID)
	assert.Nil(t, untouched.VehicleID)

	var entry models.ReconcileLog
	assert.NoError(t, db.Where("document_id = ?", orphanDoc.ID).First(&entry).Error)
	assert.Equal(t, models.StrategyRegistrationMatch, entry.Strategy)
}

func TestLinkDocumentsKeepsExistingCustomerLink(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	owner := createCustomer(t, db, "C-1", "Grace", "Green", "")
	original := createCustomer(t, db, "C-2", "Henry", "Hill", "")
	vehicle := createVehicle(t, db, "AB12CDE", &owner.ID)

	document := createDocument(t, db, "D1", "AB12CDE", &original.ID)

	summary, err := service.LinkDocuments(ReconcileOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Linked) // vehicle link resolved

	var updated models.Document
	db.First(&updated, "id = ?", document.ID)
	assert.Equal(t, original.ID, *updated.CustomerID) // customer link untouched
	assert.Equal(t, vehicle.ID, *updated.VehicleID)
}

func TestLinkVehicleOwnersHonorsLimit(t *testing.T) {
	db := setupTestDB(t)
	service := NewReconcileService(db)

	customer := createCustomer(t, db, "C-1", "Iris", "Irwin", "")
	for _, registration := range []string{"AA11AAA", "BB22BBB", "CC33CCC"} {
		createVehicle(t, db, registration, nil)
		createDocument(t, db, "D-"+registration, registration, &customer.ID)
	}

	summary, err := service.LinkVehicleOwners(ReconcileOptions{Limit: 2})
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.CandidatesExamined)
	assert.Equal(t, 2, summary.Linked)

	// The next bounded run picks up what is still orphaned.
	summary, err = service.LinkVehicleOwners(ReconcileOptions{Limit: 2})
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.CandidatesExamined)
	assert.Equal(t, 1, summary.Linked)
}

func TestReminderDueDateWindow(t *testing.T) {
	db := setupTestDB(t)

	inWindow := time.Now().AddDate(0, 0, 10)
	outWindow := time.Now().AddDate(0, 0, 90)

	customer := createCustomer(t, db, "C-1", "Jack", "Jones", "07700900123")
	vehicleDue := createVehicle(t, db, "AB12CDE", &customer.ID)
	db.Model(&vehicleDue).Update("mot_expiry", inWindow)
	vehicleLater := createVehicle(t, db, "FG34HIJ", &customer.ID)
	db.Model(&vehicleLater).Update("mot_expiry", outWindow)

	count, err := NewReminderService(db).UpcomingMOTCount(30)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
