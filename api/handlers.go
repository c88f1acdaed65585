package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SaveSummary is the listing form of a save: enough to render a save picker
// without shipping whole histories.
type SaveSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	WorldName string `json:"worldName"`
	TurnCount int    `json:"turnCount"`
	UpdatedAt int64  `json:"updatedAt"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns record counts per collection.
func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx := c.Context()

	saves, err := s.storer.Count(ctx, storage.CollectionSaves)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count saves"})
	}

	vectors, err := s.storer.Count(ctx, storage.CollectionVectors)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count vectors"})
	}

	return c.JSON(map[string]any{
		"save_count":   saves,
		"vector_count": vectors,
	})
}

// handleListSaves returns summaries of every save, most recently updated first.
func (s *Server) handleListSaves(c *fiber.Ctx) error {
	records, err := s.storer.List(c.Context(), storage.CollectionSaves)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list saves"})
	}

	summaries := make([]SaveSummary, 0, len(records))
	for _, rec := range records {
		var save session.SaveFile
		if err := json.Unmarshal(rec.Value, &save); err != nil {
			s.logger.Warn("skipping undecodable save",
				zap.String("key", rec.Key),
				zap.Error(err),
			)
			continue
		}
		summaries = append(summaries, summarize(save))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt > summaries[j].UpdatedAt
	})

	return c.JSON(map[string]any{
		"count": len(summaries),
		"saves": summaries,
	})
}

// handleGetSave returns the full save by its id.
func (s *Server) handleGetSave(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	value, err := s.storer.Get(c.Context(), storage.CollectionSaves, id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "save not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read save"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(value)
}

// handleCreateSave stores a new save. A missing id or timestamps are filled
// in server-side.
func (s *Server) handleCreateSave(c *fiber.Ctx) error {
	var save session.SaveFile
	if err := c.BodyParser(&save); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid save payload"})
	}

	now := time.Now().UnixMilli()
	if save.ID == "" {
		save.ID = fmt.Sprintf("manual-%d", now)
	}
	if save.CreatedAt == 0 {
		save.CreatedAt = now
	}
	save.UpdatedAt = now

	if err := s.putSave(c, save); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(save)
}

// handleUpdateSave overwrites the save at :id.
func (s *Server) handleUpdateSave(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	var save session.SaveFile
	if err := c.BodyParser(&save); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid save payload"})
	}

	if save.ID != "" && save.ID != id {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "save id does not match URL"})
	}
	save.ID = id
	if save.CreatedAt == 0 {
		save.CreatedAt = time.Now().UnixMilli()
	}
	save.UpdatedAt = time.Now().UnixMilli()

	if err := s.putSave(c, save); err != nil {
		return err
	}

	return c.JSON(save)
}

// handleDeleteSave removes a save. Deleting a missing save succeeds.
func (s *Server) handleDeleteSave(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	if err := s.storer.Delete(c.Context(), storage.CollectionSaves, id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete save"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) putSave(c *fiber.Ctx, save session.SaveFile) error {
	value, err := json.Marshal(save)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to encode save"})
	}

	if err := s.storer.Put(c.Context(), storage.CollectionSaves, save.ID, value); err != nil {
		s.logger.Error("writing save failed", zap.String("id", save.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to write save"})
	}

	return nil
}

func summarize(save session.SaveFile) SaveSummary {
	summary := SaveSummary{
		ID:        save.ID,
		Name:      save.Name,
		WorldName: save.Data.World.Name,
		UpdatedAt: save.UpdatedAt,
	}
	if save.Data.SavedState != nil {
		summary.TurnCount = save.Data.SavedState.TurnCount
	}
	return summary
}
