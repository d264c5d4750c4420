package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/service"
)

type CandidateHandler struct {
	candidates *service.CandidateService
}

func NewCandidateHandler(candidates *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{candidates: candidates}
}

// List handles GET /candidates
func (h *CandidateHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	candidates, total, err := h.candidates.List(c.Request.Context(), actor, page, limit)
	if err != nil {
		writeError(c, err, "list candidates")
		return
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}

// Pipeline handles GET /candidates/pipeline
func (h *CandidateHandler) Pipeline(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	counts, err := h.candidates.Pipeline(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "count candidates")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts, "total": total})
}

// Create handles POST /candidates
func (h *CandidateHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var candidate model.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	created, err := h.candidates.Create(c.Request.Context(), actor, &candidate)
	if err != nil {
		writeError(c, err, "create candidate")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// CreateBatch handles POST /candidates/batch
func (h *CandidateHandler) CreateBatch(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req struct {
		Candidates []*model.Candidate `json:"candidates" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidates is required"})
		return
	}

	created, err := h.candidates.CreateBatch(c.Request.Context(), actor, req.Candidates)
	if err != nil {
		writeError(c, err, "create candidates")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"candidates": created, "count": len(created)})
}

// Get handles GET /candidates/:id
func (h *CandidateHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	candidate, err := h.candidates.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "get candidate")
		return
	}

	c.JSON(http.StatusOK, candidate)
}

// Update handles PUT /candidates/:id
func (h *CandidateHandler) Update(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	var patch service.CandidatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updated, err := h.candidates.Update(c.Request.Context(), actor, id, &patch)
	if err != nil {
		writeError(c, err, "update candidate")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /candidates/:id
func (h *CandidateHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	if err := h.candidates.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err, "delete candidate")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// UpdateStatus handles PUT /candidates/:id/status
func (h *CandidateHandler) UpdateStatus(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	updated, err := h.candidates.ChangeStatus(c.Request.Context(), actor, id, req.Status, req.Note)
	if err != nil {
		writeError(c, err, "update status")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// History handles GET /candidates/:id/history
func (h *CandidateHandler) History(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	history, err := h.candidates.History(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "get status history")
		return
	}
	if history == nil {
		history = []model.StatusHistory{}
	}

	c.JSON(http.StatusOK, history)
}

// ListNotes handles GET /candidates/:id/notes
func (h *CandidateHandler) ListNotes(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	notes, err := h.candidates.ListNotes(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "list notes")
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}

	c.JSON(http.StatusOK, notes)
}

// AddNote handles POST /candidates/:id/notes
func (h *CandidateHandler) AddNote(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	note, err := h.candidates.AddNote(c.Request.Context(), actor, id, req.Content)
	if err != nil {
		writeError(c, err, "add note")
		return
	}

	c.JSON(http.StatusCreated, note)
}

// DeleteNote handles DELETE /candidates/:id/notes/:noteId
func (h *CandidateHandler) DeleteNote(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}
	noteID, ok := paramID(c, "noteId", "note")
	if !ok {
		return
	}

	if err := h.candidates.DeleteNote(c.Request.Context(), actor, id, noteID); err != nil {
		writeError(c, err, "delete note")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
