package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/service"
)

const maxImportBytes = 5 * 1024 * 1024

type ImportHandler struct {
	candidates *service.CandidateService
}

func NewImportHandler(candidates *service.CandidateService) *ImportHandler {
	return &ImportHandler{candidates: candidates}
}

// ImportCSV handles POST /candidates/import
// Accepts a CSV via multipart form. Bad lines are counted, not fatal.
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV files are supported"})
		return
	}
	if header.Size > maxImportBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 5MB."})
		return
	}

	rows, err := service.ParseCandidateCSV(file)
	if err != nil {
		if errors.Is(err, service.ErrImportFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to parse import file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No candidates found in CSV"})
		return
	}

	result, err := h.candidates.Import(c.Request.Context(), actor, rows)
	if err != nil {
		writeError(c, err, "import candidates")
		return
	}

	log.Info().
		Str("filename", header.Filename).
		Int("rows", len(rows)).
		Msg("CSV import completed")

	c.JSON(http.StatusOK, gin.H{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"errors":   result.Errors,
		"total":    len(rows),
	})
}
