// controllers/report.go
package controllers

import (
	"net/http"
	"strconv"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReportController handles all reporting functions
type ReportController struct{}

// LinkageSummary represents link coverage for one entity kind
type LinkageSummary struct {
	Total           int64   `json:"total"`
	Linked          int64   `json:"linked"`
	Unlinked        int64   `json:"unlinked"`
	PercentComplete float64 `json:"percentComplete"`
}

// LinkageReport is the read-side view of reconciliation progress
type LinkageReport struct {
	Vehicles          LinkageSummary        `json:"vehicles"`
	Documents         LinkageSummary        `json:"documents"`
	DocumentsByType   map[string]int64      `json:"documentsByType"`
	TotalCustomers    int64                 `json:"totalCustomers"`
	UpcomingMOTs      int64                 `json:"upcomingMOTs"`
	SampleOrphans     []string              `json:"sampleOrphans"`
	RecentAssignments []models.ReconcileLog `json:"recentAssignments"`
}

// GetLinkageReport returns counts, completion percentages and a sample
// of orphans for manual inspection. Read-only.
func (rc *ReportController) GetLinkageReport(c *gin.Context) {
	vehicles, err := rc.getLinkage(&models.Vehicle{}, "owner_id")
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get vehicle linkage")
		return
	}

	documents, err := rc.getLinkage(&models.Document{}, "customer_id")
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get document linkage")
		return
	}

	byType, err := rc.getDocumentsByType()
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get document type breakdown")
		return
	}

	var totalCustomers int64
	if err := config.DB.Model(&models.Customer{}).Count(&totalCustomers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count customers")
		return
	}

	motWindow := 30
	if raw := c.Query("motWindowDays"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			motWindow = parsed
		}
	}
	upcomingMOTs, err := services.NewReminderService(config.DB).UpcomingMOTCount(motWindow)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count upcoming MOTs")
		return
	}

	sampleOrphans, err := rc.getSampleOrphans(10)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to sample orphans")
		return
	}

	var recent []models.ReconcileLog
	if err := config.DB.Order("created_at DESC").Limit(10).Find(&recent).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch recent assignments")
		return
	}

	report := LinkageReport{
		Vehicles:          vehicles,
		Documents:         documents,
		DocumentsByType:   byType,
		TotalCustomers:    totalCustomers,
		UpcomingMOTs:      upcomingMOTs,
		SampleOrphans:     sampleOrphans,
		RecentAssignments: recent,
	}

	c.JSON(http.StatusOK, report)
}

// Helper functions for reports

func (rc *ReportController) getLinkage(model interface{}, linkColumn string) (LinkageSummary, error) {
	var summary LinkageSummary

	if err := config.DB.Model(model).Count(&summary.Total).Error; err != nil {
		return summary, err
	}
	if err := config.DB.Model(model).
		Where(linkColumn + " IS NOT NULL").
		Count(&summary.Linked).Error; err != nil {
		return summary, err
	}

	summary.Unlinked = summary.Total - summary.Linked
	if summary.Total > 0 {
		summary.PercentComplete = float64(summary.Linked) / float64(summary.Total) * 100
	}
	return summary, nil
}

func (rc *ReportController) getDocumentsByType() (map[string]int64, error) {
	type typeCount struct {
		DocType string
		Count   int64
	}

	var rows []typeCount
	err := config.DB.Model(&models.Document{}).
		Select("doc_type, COUNT(*) as count").
		Group("doc_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int64, len(rows))
	for _, row := range rows {
		byType[row.DocType] = row.Count
	}
	return byType, nil
}

func (rc *ReportController) getSampleOrphans(limit int) ([]string, error) {
	var registrations []string
	err := config.DB.Model(&models.Vehicle{}).
		Where("owner_id IS NULL").
		Order("registration").
		Limit(limit).
		Pluck("registration", &registrations).Error
	return registrations, err
}
