package server

import (
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests/:id
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.friends.SendRequest(c.UserContext(), middleware.ProfileID(c), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.SentRequest{ToID: targetID, Request: req})
}

// GetPendingRequests handles GET /api/friends/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	pending, err := s.friends.ListPendingRequests(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(pending)
}

// GetSentRequests handles GET /api/friends/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	sent, err := s.friends.ListSentRequests(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(sent)
}

// AcceptFriendRequest handles POST /api/friends/requests/:id/accept, where
// :id is the sender.
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	fromID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.AcceptRequest(c.UserContext(), middleware.ProfileID(c), fromID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"status": models.FriendStatusFriend})
}

// RejectFriendRequest handles POST /api/friends/requests/:id/reject
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	fromID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.RejectRequest(c.UserContext(), middleware.ProfileID(c), fromID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CancelFriendRequest handles DELETE /api/friends/requests/sent/:id
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	toID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.CancelRequest(c.UserContext(), middleware.ProfileID(c), toID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.friends.ListFriends(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(friends)
}

// GetFriendStatus handles GET /api/friends/status/:id
func (s *Server) GetFriendStatus(c *fiber.Ctx) error {
	otherID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	status, err := s.friends.FriendStatus(c.UserContext(), middleware.ProfileID(c), otherID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// RemoveFriend handles DELETE /api/friends/:id
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	otherID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.RemoveFriend(c.UserContext(), middleware.ProfileID(c), otherID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
