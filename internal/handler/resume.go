package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/service"
)

const (
	maxResumeBytes = 10 * 1024 * 1024
	// maxResumeChars caps the text stored on the candidate
	maxResumeChars = 100000
	minResumeChars = 50
)

type ResumeHandler struct {
	candidates *service.CandidateService
}

func NewResumeHandler(candidates *service.CandidateService) *ResumeHandler {
	return &ResumeHandler{candidates: candidates}
}

// Upload handles POST /candidates/:id/resume
// Accepts a PDF via multipart form, extracts its text and stores it on the candidate
func (h *ResumeHandler) Upload(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return
	}
	if header.Size > maxResumeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 10MB."})
		return
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxResumeBytes+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	// Header must start with %PDF
	if len(fileBytes) < 4 || string(fileBytes[:4]) != "%PDF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid PDF file"})
		return
	}

	text, err := extractPDFText(fileBytes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to extract text from PDF")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Could not extract text from this PDF. It may be image-based or corrupted.",
		})
		return
	}

	text = strings.TrimSpace(text)
	if len(text) < minResumeChars {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Very little text was extracted. This PDF may be image-based (scanned). Try a text-based PDF.",
		})
		return
	}
	if len(text) > maxResumeChars {
		text = strings.ToValidUTF8(text[:maxResumeChars], "")
	}

	updated, err := h.candidates.AttachResume(c.Request.Context(), actor, id, text)
	if err != nil {
		writeError(c, err, "store resume")
		return
	}

	log.Info().
		Str("candidateId", id.String()).
		Str("filename", header.Filename).
		Int("bytes", len(fileBytes)).
		Int("textLen", len(text)).
		Msg("Resume PDF text extracted")

	c.JSON(http.StatusOK, gin.H{
		"candidate": updated,
		"filename":  header.Filename,
		"textLen":   len(text),
	})
}

// ── Helpers ──────────────────────────────────────────

func extractPDFText(data []byte) (string, error) {
	// ledongthuc/pdf reads from a file
	tmpFile, err := os.CreateTemp("", "resume-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	f, reader, err := pdf.Open(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Int("page", i).Err(err).Msg("Failed to extract text from PDF page")
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}
