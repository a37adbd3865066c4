package controllers

import (
	"io"
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
)

// runImport feeds the uploaded CSV into one importer and returns the
// batch summary. Row-level failures live inside the summary; only an
// unreadable file or a dead store becomes an HTTP error.
func runImport(c *gin.Context, run func(*services.ImportService, io.Reader) (services.ImportSummary, error)) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "CSV file required in 'file' field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to open uploaded file")
		return
	}
	defer file.Close()

	summary, err := run(services.NewImportService(config.DB), file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ImportCustomers imports a customer CSV export
func ImportCustomers(c *gin.Context) {
	runImport(c, (*services.ImportService).ImportCustomers)
}

// ImportVehicles imports a vehicle CSV export
func ImportVehicles(c *gin.Context) {
	runImport(c, (*services.ImportService).ImportVehicles)
}

// ImportDocuments imports a document CSV export
func ImportDocuments(c *gin.Context) {
	runImport(c, (*services.ImportService).ImportDocuments)
}

// ImportLineItems imports a line item CSV export
func ImportLineItems(c *gin.Context) {
	runImport(c, (*services.ImportService).ImportLineItems)
}

// ImportExtras imports a document extras CSV export
func ImportExtras(c *gin.Context) {
	runImport(c, (*services.ImportService).ImportDocumentExtras)
}
