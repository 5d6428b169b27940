package server

import (
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAllProfiles handles GET /api/admin/profiles
func (s *Server) GetAllProfiles(c *fiber.Ctx) error {
	profiles, err := s.profiles.ListProfiles(c.UserContext(), middleware.ExternalID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profiles)
}

type updateRoleRequest struct {
	Role models.Role `json:"role"`
}

// UpdateProfileRole handles PUT /api/admin/profiles/:id/role
func (s *Server) UpdateProfileRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.profiles.UpdateRole(c.UserContext(), middleware.ExternalID(c), id, req.Role)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}
