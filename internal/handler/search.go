package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/search"
)

type SearchHandler struct {
	searcher *search.Searcher
}

// NewSearchHandler wires the handler; searcher may be nil when no search domain is configured
func NewSearchHandler(searcher *search.Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles GET /candidates/search
func (h *SearchHandler) Search(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
		return
	}

	params, err := search.ParseParams(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.searcher.SearchCandidates(c.Request.Context(), actor.DomainID, params)
	if err != nil {
		if errors.Is(err, search.ErrInvalidParams) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("domainId", actor.DomainID.String()).Msg("Candidate search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Search is temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Facets handles GET /candidates/search/facets
func (h *SearchHandler) Facets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"facets": search.FacetFields})
}
