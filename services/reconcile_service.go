// services/reconcile_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRoundRobinCap = 50

var ErrVehicleNotFound = errors.New("vehicle not found")

// ReconcileOptions bounds a bulk pass. Limit keeps runs resumable: an
// interrupted run is simply re-invoked and re-queries the still-orphaned
// set. Round-robin is a best-effort placeholder assignment and must be
// opted into explicitly.
type ReconcileOptions struct {
	Limit         int  `json:"limit"`
	UseRoundRobin bool `json:"useRoundRobin"`
	RoundRobinCap int  `json:"roundRobinCap"`
}

// ReconcileSummary is returned by every engine pass so the operator can
// see what happened before deciding to re-run or intervene.
type ReconcileSummary struct {
	CandidatesExamined int      `json:"candidatesExamined"`
	Linked             int      `json:"linked"`
	AlreadyLinked      int      `json:"alreadyLinked"`
	SkippedNoCandidate int      `json:"skippedNoCandidate"`
	Errors             int      `json:"errors"`
	Samples            []string `json:"samples,omitempty"`
}

func (s *ReconcileSummary) addSample(format string, args ...interface{}) {
	if len(s.Samples) < maxSummarySamples {
		s.Samples = append(s.Samples, fmt.Sprintf(format, args...))
	}
}

// ContactHint carries caller-supplied contact details for the
// single-vehicle fix workflow.
type ContactHint struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (h *ContactHint) complete() bool {
	return h != nil && (h.FirstName != "" || h.LastName != "") &&
		(h.Phone != "" || h.Email != "")
}

type ReconcileService struct {
	db *gorm.DB
}

func NewReconcileService(db *gorm.DB) *ReconcileService {
	return &ReconcileService{db: db}
}

// LinkVehicleOwners walks vehicles with no owner link, in registration
// order, and assigns owners from document history. Vehicles with no
// history are left unlinked unless the caller opted into round-robin.
// Existing links are never overwritten: the write is compare-and-set on
// owner_id still being null.
func (s *ReconcileService) LinkVehicleOwners(opts ReconcileOptions) (ReconcileSummary, error) {
	var summary ReconcileSummary

	index, err := s.documentHistoryIndex()
	if err != nil {
		return summary, err
	}

	query := s.db.Where("owner_id IS NULL").Order("registration")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var vehicles []models.Vehicle
	if err := query.Find(&vehicles).Error; err != nil {
		return summary, err
	}

	var unmatched []models.Vehicle
	for _, vehicle := range vehicles {
		summary.CandidatesExamined++

		ownerID, ok := index[vehicle.Registration]
		if !ok {
			unmatched = append(unmatched, vehicle)
			continue
		}
		s.assignOwner(&summary, vehicle, ownerID, models.StrategyDocumentHistory, false)
	}

	if opts.UseRoundRobin && len(unmatched) > 0 {
		s.assignRoundRobin(&summary, unmatched, opts.RoundRobinCap)
	} else {
		summary.SkippedNoCandidate += len(unmatched)
	}

	log.Printf("[RECONCILE] vehicles: examined %d, linked %d, already linked %d, skipped %d, errors %d",
		summary.CandidatesExamined, summary.Linked, summary.AlreadyLinked,
		summary.SkippedNoCandidate, summary.Errors)
	return summary, nil
}

// documentHistoryIndex builds, once per pass, a map from normalized
// registration to the customer with the most documents for it. Ties
// break on lowest customer id so repeated runs pick the same owner.
func (s *ReconcileService) documentHistoryIndex() (map[string]uuid.UUID, error) {
	var docs []models.Document
	err := s.db.
		Select("vehicle_registration", "customer_id").
		Where("customer_id IS NOT NULL AND vehicle_registration <> ''").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[uuid.UUID]int)
	for _, doc := range docs {
		registration := utils.NormalizeRegistration(doc.VehicleRegistration)
		if registration == "" {
			continue
		}
		if counts[registration] == nil {
			counts[registration] = make(map[uuid.UUID]int)
		}
		counts[registration][*doc.CustomerID]++
	}

	index := make(map[string]uuid.UUID, len(counts))
	for registration, byCustomer := range counts {
		var best uuid.UUID
		bestCount := 0
		for customerID, n := range byCustomer {
			if n > bestCount || (n == bestCount && customerID.String() < best.String()) {
				best = customerID
				bestCount = n
			}
		}
		index[registration] = best
	}
	return index, nil
}

// assignOwner writes the owner link with a compare-and-set predicate and
// records the strategy in the reconcile log. Zero rows affected means
// someone else linked the vehicle between our read and write; that is
// counted as already linked, not an error.
func (s *ReconcileService) assignOwner(summary *ReconcileSummary, vehicle models.Vehicle, customerID uuid.UUID, strategy string, force bool) bool {
	query := s.db.Model(&models.Vehicle{}).Where("id = ?", vehicle.ID)
	if !force {
		query = query.Where("owner_id IS NULL")
	}

	result := query.Update("owner_id", customerID)
	if result.Error != nil {
		summary.Errors++
		summary.addSample("%s: %v", vehicle.Registration, result.Error)
		return false
	}
	if result.RowsAffected == 0 {
		summary.AlreadyLinked++
		return false
	}

	summary.Linked++
	entry := models.ReconcileLog{
		VehicleID:  &vehicle.ID,
		CustomerID: customerID,
		Strategy:   strategy,
		Detail:     vehicle.Registration,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log reconcile entry for %s: %v", vehicle.Registration, err)
	}
	return true
}

// assignRoundRobin distributes leftover vehicles across customers who
// already own at least one vehicle and fewer than the cap. This is an
// explicitly labelled placeholder, not an evidence-based match; every
// assignment is logged with the round_robin strategy so it can be told
// apart from document-history links and unwound later.
func (s *ReconcileService) assignRoundRobin(summary *ReconcileSummary, vehicles []models.Vehicle, poolCap int) {
	if poolCap <= 0 {
		poolCap = defaultRoundRobinCap
	}

	type poolEntry struct {
		ID uuid.UUID
	}
	var pool []poolEntry
	err := s.db.Model(&models.Customer{}).
		Select("customers.id").
		Joins("JOIN vehicles ON vehicles.owner_id = customers.id AND vehicles.deleted_at IS NULL").
		Group("customers.id, customers.last_name, customers.first_name").
		Having("COUNT(vehicles.id) < ?", poolCap).
		Order("COUNT(vehicles.id) ASC, customers.last_name ASC, customers.first_name ASC").
		Scan(&pool).Error
	if err != nil {
		summary.Errors++
		summary.addSample("round-robin pool: %v", err)
		summary.SkippedNoCandidate += len(vehicles)
		return
	}
	if len(pool) == 0 {
		summary.SkippedNoCandidate += len(vehicles)
		return
	}

	for i, vehicle := range vehicles {
		s.assignOwner(summary, vehicle, pool[i%len(pool)].ID, models.StrategyRoundRobin, false)
	}
}

// FixVehicleOwner is the single-vehicle workflow: document history
// first, then an exact contact match against the caller's hint, creating
// the customer when no record matches and the hint is a full payload.
// force re-nulls a known-bad link before relinking; without it an
// existing link is left alone.
func (s *ReconcileService) FixVehicleOwner(registration string, hint *ContactHint, force bool) (ReconcileSummary, error) {
	var summary ReconcileSummary

	normalized := utils.NormalizeRegistration(registration)
	var vehicle models.Vehicle
	if err := s.db.Where("registration = ?", normalized).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, ErrVehicleNotFound
		}
		return summary, err
	}

	summary.CandidatesExamined++

	if vehicle.OwnerID != nil {
		if !force {
			summary.AlreadyLinked++
			return summary, nil
		}
		// Repair pass: clear the known-bad link before recomputing.
		if err := s.db.Model(&models.Vehicle{}).
			Where("id = ?", vehicle.ID).
			Update("owner_id", nil).Error; err != nil {
			return summary, err
		}
		vehicle.OwnerID = nil
	}

	index, err := s.documentHistoryIndex()
	if err != nil {
		return summary, err
	}
	if ownerID, ok := index[vehicle.Registration]; ok {
		s.assignOwner(&summary, vehicle, ownerID, models.StrategyDocumentHistory, force)
		return summary, nil
	}

	if hint != nil {
		customer, err := s.findOrCreateCustomer(hint)
		if err != nil {
			return summary, err
		}
		if customer != nil {
			s.assignOwner(&summary, vehicle, customer.ID, models.StrategyContactMatch, force)
			return summary, nil
		}
	}

	summary.SkippedNoCandidate++
	return summary, nil
}

// findOrCreateCustomer looks up by normalized phone, then lowercased
// email, before creating. Creation requires a full payload (a name plus
// at least one contact field); a partial hint that matches nothing
// returns nil rather than fabricating a record.
func (s *ReconcileService) findOrCreateCustomer(hint *ContactHint) (*models.Customer, error) {
	if phone := utils.NormalizePhone(hint.Phone); phone != "" {
		var customer models.Customer
		err := s.db.Where("normalized_phone = ?", phone).First(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if hint.Email != "" {
		var customer models.Customer
		err := s.db.Where("LOWER(email) = ?", utils.LowerTrim(hint.Email)).First(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if !hint.complete() {
		return nil, nil
	}

	customer := models.Customer{
		FirstName:       hint.FirstName,
		LastName:        hint.LastName,
		Phone:           hint.Phone,
		NormalizedPhone: utils.NormalizePhone(hint.Phone),
		Email:           utils.LowerTrim(hint.Email),
		IsActive:        true,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// LinkDocuments resolves orphaned documents against the vehicle table.
// The registration index is built once per batch; matching is exact
// equality after normalization, no fuzzy matching. A document whose
// registration matches nothing is a legitimate terminal state, counted
// as skipped.
func (s *ReconcileService) LinkDocuments(opts ReconcileOptions) (ReconcileSummary, error) {
	var summary ReconcileSummary

	var vehicles []models.Vehicle
	if err := s.db.Select("id", "registration", "owner_id").Find(&vehicles).Error; err != nil {
		return summary, err
	}
	index := make(map[string]models.Vehicle, len(vehicles))
	for _, vehicle := range vehicles {
		index[vehicle.Registration] = vehicle
	}

	query := s.db.
		Where("(vehicle_id IS NULL OR customer_id IS NULL) AND vehicle_registration <> ''").
		Order("external_id")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var documents []models.Document
	if err := query.Find(&documents).Error; err != nil {
		return summary, err
	}

	for _, document := range documents {
		summary.CandidatesExamined++

		vehicle, ok := index[utils.NormalizeRegistration(document.VehicleRegistration)]
		if !ok {
			summary.SkippedNoCandidate++
			continue
		}

		linked := false

		if document.VehicleID == nil {
			result := s.db.Model(&models.Document{}).
				Where("id = ? AND vehicle_id IS NULL", document.ID).
				Update("vehicle_id", vehicle.ID)
			if result.Error != nil {
				summary.Errors++
				summary.addSample("%s: %v", document.ExternalID, result.Error)
				continue
			}
			linked = linked || result.RowsAffected > 0
		}

		if document.CustomerID == nil && vehicle.OwnerID != nil {
			result := s.db.Model(&models.Document{}).
				Where("id = ? AND customer_id IS NULL", document.ID).
				Update("customer_id", *vehicle.OwnerID)
			if result.Error != nil {
				summary.Errors++
				summary.addSample("%s: %v", document.ExternalID, result.Error)
				continue
			}
			if result.RowsAffected > 0 {
				linked = true
				entry := models.ReconcileLog{
					DocumentID: &document.ID,
					CustomerID: *vehicle.OwnerID,
					Strategy:   models.StrategyRegistrationMatch,
					Detail:     vehicle.Registration,
				}
				if err := s.db.Create(&entry).Error; err != nil {
					log.Printf("Failed to log reconcile entry for document %s: %v", document.ExternalID, err)
				}
			}
		}

		if linked {
			summary.Linked++
		} else {
			summary.AlreadyLinked++
		}
	}

	log.Printf("[RECONCILE] documents: examined %d, linked %d, already linked %d, skipped %d, errors %d",
		summary.CandidatesExamined, summary.Linked, summary.AlreadyLinked,
		summary.SkippedNoCandidate, summary.Errors)
	return summary, nil
}
