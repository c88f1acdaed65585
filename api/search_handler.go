package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SearchResponse is the body returned by GET /v1/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// SearchResult is one recalled memory with its similarity score.
type SearchResult struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Role      string  `json:"role"`
	Timestamp int64   `json:"timestamp"`
	Score     float64 `json:"score"`
}

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	// Verify search is configured
	if s.config.Memory == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured: an embedder is required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := 5
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	matches := s.config.Memory.Search(c.Context(), query, topK)

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			ID:        m.ID,
			Text:      m.Text,
			Role:      m.Role,
			Timestamp: m.Timestamp,
			Score:     m.Score,
		})
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}
