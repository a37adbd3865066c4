// services/import_service.go
package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxSummarySamples = 10

// ImportSummary is returned by every batch import. A malformed row is
// skipped and counted, never fatal; only a dead store aborts the batch.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errored  int      `json:"errored"`
	Samples  []string `json:"samples,omitempty"`
}

func (s *ImportSummary) addSample(format string, args ...interface{}) {
	if len(s.Samples) < maxSummarySamples {
		s.Samples = append(s.Samples, fmt.Sprintf(format, args...))
	}
}

type ImportService struct {
	db *gorm.DB
}

func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{db: db}
}

// csvTable wraps a parsed CSV with case-insensitive, whitespace-trimmed
// header lookup, matching how the legacy export names its columns
// (docDate_Issued, nameForename, contactMobile...).
type csvTable struct {
	header map[string]int
	rows   [][]string
}

func readCSV(r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &csvTable{header: header, rows: records[1:]}, nil
}

func (t *csvTable) get(row []string, column string) string {
	idx, ok := t.header[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// storeDown reports whether an error means the store itself is gone, in
// which case the rest of the batch is abandoned.
func storeDown(err error) bool {
	return errors.Is(err, gorm.ErrInvalidDB)
}

// ImportCustomers upserts customer rows keyed by the legacy _ID column.
// Re-importing the same export updates normalized fields in place.
func (s *ImportService) ImportCustomers(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	table, err := readCSV(r)
	if err != nil {
		return summary, err
	}

	for i, row := range table.rows {
		externalID := table.get(row, "_id")
		if externalID == "" {
			summary.Skipped++
			summary.addSample("row %d: missing _ID", i+2)
			continue
		}

		rawPhone := table.get(row, "contactMobile")
		if rawPhone == "" {
			rawPhone = table.get(row, "contactTelephone")
		}

		customer := models.Customer{
			ExternalID:      &externalID,
			FirstName:       table.get(row, "nameForename"),
			LastName:        table.get(row, "nameSurname"),
			Phone:           rawPhone,
			NormalizedPhone: utils.NormalizePhone(rawPhone),
			Email:           strings.ToLower(table.get(row, "contactEmail")),
			AddressLine1:    table.get(row, "addressRoad"),
			City:            table.get(row, "addressTown"),
			Postcode:        table.get(row, "addressPostCode"),
			CompanyName:     table.get(row, "nameCompany"),
			IsActive:        true,
		}

		err := s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_name", "last_name", "phone", "normalized_phone",
				"email", "address_line1", "city", "postcode", "company_name",
			}),
		}).Create(&customer).Error
		if err != nil {
			summary.Errored++
			summary.addSample("row %d (%s): %v", i+2, externalID, err)
			if storeDown(err) {
				return summary, err
			}
			continue
		}
		summary.Imported++
	}

	log.Printf("[IMPORT] customers: %d imported, %d skipped, %d errored",
		summary.Imported, summary.Skipped, summary.Errored)
	return summary, nil
}

// ImportVehicles upserts vehicle rows keyed by normalized registration.
// The legacy export carries ownership in two parallel columns (ownerID
// and customerID); they are coalesced into the single owner link here,
// resolved against customer external ids.
func (s *ImportService) ImportVehicles(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	table, err := readCSV(r)
	if err != nil {
		return summary, err
	}

	for i, row := range table.rows {
		registration := utils.NormalizeRegistration(table.get(row, "registration"))
		if registration == "" {
			summary.Skipped++
			summary.addSample("row %d: missing registration", i+2)
			continue
		}

		year, _ := strconv.Atoi(table.get(row, "year"))

		vehicle := models.Vehicle{
			Registration: registration,
			Make:         table.get(row, "make"),
			Model:        table.get(row, "model"),
			Year:         year,
			Colour:       table.get(row, "colour"),
			FuelType:     table.get(row, "fuelType"),
			Derivative:   table.get(row, "derivative"),
			MOTExpiry:    utils.ParseUKDate(table.get(row, "motExpiry")),
			TaxDue:       utils.ParseUKDate(table.get(row, "taxDue")),
		}

		// owner = coalesce(ownerID, customerID), then resolved to a real
		// customer row. An unresolvable reference stays null and is left
		// for the reconciliation pass.
		ownerRef := table.get(row, "ownerID")
		if ownerRef == "" {
			ownerRef = table.get(row, "customerID")
		}
		if ownerRef != "" {
			var owner models.Customer
			if err := s.db.Where("external_id = ?", ownerRef).First(&owner).Error; err == nil {
				vehicle.OwnerID = &owner.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Errored++
				summary.addSample("row %d (%s): owner lookup: %v", i+2, registration, err)
				if storeDown(err) {
					return summary, err
				}
				continue
			}
		}

		err := s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "registration"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"make", "model", "year", "colour", "fuel_type", "derivative",
				"mot_expiry", "tax_due",
			}),
		}).Create(&vehicle).Error
		if err != nil {
			summary.Errored++
			summary.addSample("row %d (%s): %v", i+2, registration, err)
			if storeDown(err) {
				return summary, err
			}
			continue
		}
		summary.Imported++
	}

	log.Printf("[IMPORT] vehicles: %d imported, %d skipped, %d errored",
		summary.Imported, summary.Skipped, summary.Errored)
	return summary, nil
}

// ImportDocuments inserts document rows keyed by the legacy _id, with
// DO NOTHING conflict semantics so re-imports are no-ops. Customer links
// are resolved from the export's _ID_Customer column when present.
func (s *ImportService) ImportDocuments(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	table, err := readCSV(r)
	if err != nil {
		return summary, err
	}

	for i, row := range table.rows {
		externalID := table.get(row, "_id")
		if externalID == "" {
			summary.Skipped++
			summary.addSample("row %d: missing _id", i+2)
			continue
		}

		document := models.Document{
			ExternalID:          externalID,
			DocType:             models.DocTypeFromCode(table.get(row, "docType")),
			DocNumber:           table.get(row, "docNumber"),
			IssuedDate:          utils.ParseUKDate(table.get(row, "docDate_Issued")),
			VehicleRegistration: table.get(row, "vehRegistration"),
			TotalGross:          utils.ParseMoney(table.get(row, "total_GROSS")),
			TotalNet:            utils.ParseMoney(table.get(row, "total_NET")),
			TotalTax:            utils.ParseMoney(table.get(row, "total_TAX")),
			Status:              table.get(row, "status"),
		}

		if customerRef := table.get(row, "_ID_Customer"); customerRef != "" {
			var customer models.Customer
			if err := s.db.Where("external_id = ?", customerRef).First(&customer).Error; err == nil {
				document.CustomerID = &customer.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Errored++
				summary.addSample("row %d (%s): customer lookup: %v", i+2, externalID, err)
				if storeDown(err) {
					return summary, err
				}
				continue
			}
		}

		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(&document).Error
		if err != nil {
			summary.Errored++
			summary.addSample("row %d (%s): %v", i+2, externalID, err)
			if storeDown(err) {
				return summary, err
			}
			continue
		}
		summary.Imported++
	}

	log.Printf("[IMPORT] documents: %d imported, %d skipped, %d errored",
		summary.Imported, summary.Skipped, summary.Errored)
	return summary, nil
}

// ImportLineItems attaches line item rows to documents by document _id.
// Rows referencing an unknown document are skipped.
func (s *ImportService) ImportLineItems(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	table, err := readCSV(r)
	if err != nil {
		return summary, err
	}

	for i, row := range table.rows {
		docRef := table.get(row, "_ID_Document")
		if docRef == "" {
			summary.Skipped++
			summary.addSample("row %d: missing _ID_Document", i+2)
			continue
		}

		var document models.Document
		if err := s.db.Where("external_id = ?", docRef).First(&document).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Skipped++
				summary.addSample("row %d: unknown document %s", i+2, docRef)
				continue
			}
			summary.Errored++
			if storeDown(err) {
				return summary, err
			}
			continue
		}

		quantity, errQty := strconv.ParseFloat(table.get(row, "itemQuantity"), 64)
		if errQty != nil {
			quantity = 1
		}

		item := models.DocumentItem{
			DocumentID:  document.ID,
			Description: table.get(row, "itemDescription"),
			Quantity:    quantity,
			UnitPrice:   utils.ParseMoney(table.get(row, "itemUnitPrice")),
			TotalPrice:  utils.ParseMoney(table.get(row, "itemSub_Gross")),
		}

		if err := s.db.Create(&item).Error; err != nil {
			summary.Errored++
			summary.addSample("row %d (%s): %v", i+2, docRef, err)
			if storeDown(err) {
				return summary, err
			}
			continue
		}
		summary.Imported++
	}

	log.Printf("[IMPORT] line items: %d imported, %d skipped, %d errored",
		summary.Imported, summary.Skipped, summary.Errored)
	return summary, nil
}

// ImportDocumentExtras attaches labour description rows to documents.
func (s *ImportService) ImportDocumentExtras(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	table, err := readCSV(r)
	if err != nil {
		return summary, err
	}

	for i, row := range table.rows {
		docRef := table.get(row, "_ID_Document")
		if docRef == "" {
			summary.Skipped++
			summary.addSample("row %d: missing _ID_Document", i+2)
			continue
		}

		var document models.Document
		if err := s.db.Where("external_id = ?", docRef).First(&document).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Skipped++
				summary.addSample("row %d: unknown document %s", i+2, docRef)
				continue
			}
			summary.Errored++
			if storeDown(err) {
				return summary, err
			}
			continue
		}

		extra := models.DocumentExtra{
			DocumentID:  document.ID,
			Description: table.get(row, "labourDescription"),
			Notes:       table.get(row, "docNotes"),
		}

		if err := s.db.Create(&extra).Error; err != nil {
			summary.Errored++
			summary.addSample("row %d (%s): %v", i+2, docRef, err)
			if storeDown(err) {
				return summary, err
			}
			continue
		}
		summary.Imported++
	}

	log.Printf("[IMPORT] document extras: %d imported, %d skipped, %d errored",
		summary.Imported, summary.Skipped, summary.Errored)
	return summary, nil
}
