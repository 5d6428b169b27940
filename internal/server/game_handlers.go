package server

import (
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetGames handles GET /api/games
func (s *Server) GetGames(c *fiber.Ctx) error {
	return c.JSON(s.scores.Games())
}

// GetLeaderboard handles GET /api/games/:key/leaderboard?limit=N
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.leaderboard.Top(c.UserContext(), c.Params("key"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

type submitScoreRequest struct {
	Value *int64 `json:"value"`
}

// ScoreResponse reports the personal best after a submission.
type ScoreResponse struct {
	GameKey  string `json:"gameKey"`
	Improved bool   `json:"improved"`
	Best     int64  `json:"best"`
}

// SubmitScore handles POST /api/games/:key/scores
func (s *Server) SubmitScore(c *fiber.Ctx) error {
	var req submitScoreRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Value == nil {
		return models.RespondWithAppError(c, models.NewInvalidArgumentError("value is required"))
	}

	ctx := c.UserContext()
	key := c.Params("key")
	sub, err := s.scores.SubmitToGame(ctx, middleware.ProfileID(c), key, *req.Value)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(ScoreResponse{GameKey: key, Improved: sub.Improved, Best: sub.Best})
}

// GetPersonalBest handles GET /api/games/:key/best
func (s *Server) GetPersonalBest(c *fiber.Ctx) error {
	key := c.Params("key")
	best, found, err := s.scores.GetPersonalBest(c.UserContext(), middleware.ProfileID(c), key)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !found {
		return models.RespondWithAppError(c, models.NewNotFoundError("Score", key))
	}
	return c.JSON(fiber.Map{"gameKey": key, "best": best})
}
