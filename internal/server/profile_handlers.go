package server

import (
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionResponse is returned by POST /api/session.
type SessionResponse struct {
	Profile *models.Profile `json:"profile"`
}

// CreateSession handles POST /api/session. It resolves the caller's profile,
// creating it on first login, and records the login time.
func (s *Server) CreateSession(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.profiles.ResolveOrCreate(ctx, middleware.ExternalID(c), middleware.NicknameHint(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	middleware.SetProfileID(c, id)

	profile, err := s.profiles.RecordLogin(ctx, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(SessionResponse{Profile: profile})
}

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.GetProfile(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profiles/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.profiles.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

type updateBioRequest struct {
	Bio string `json:"bio"`
}

// UpdateMyBio handles PUT /api/profiles/me/bio
func (s *Server) UpdateMyBio(c *fiber.Ctx) error {
	var req updateBioRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.profiles.UpdateBio(c.UserContext(), middleware.ProfileID(c), req.Bio, middleware.ExternalID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// MarkAnnouncementsSeen handles POST /api/profiles/me/announcements-seen
func (s *Server) MarkAnnouncementsSeen(c *fiber.Ctx) error {
	seen, err := s.profiles.MarkAnnouncementsSeen(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"lastSeenAnnounceAt": seen})
}
