package server

import (
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateFeedback handles POST /api/feedback
// @Summary Rate the other participant of a completed swap
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateFeedbackInput true "Feedback"
// @Success 201 {object} models.Response{data=object{feedback=models.Feedback}}
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /feedback [post]
func (s *Server) CreateFeedback(c *fiber.Ctx) error {
	var req service.CreateFeedbackInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	fb, err := s.feedbackService.Create(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Feedback submitted successfully", fiber.Map{"feedback": fb})
}

// GetUserFeedback handles GET /api/feedback/user/:userId
// @Summary Feedback a user received
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=service.FeedbackList}
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /feedback/user/{userId} [get]
func (s *Server) GetUserFeedback(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 10)
	list, err := s.feedbackService.ListForUser(c.UserContext(), currentUserID(c), userID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", list)
}

// GetSwapFeedback handles GET /api/feedback/swap/:swapRequestId
// @Summary Feedback left on one swap
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param swapRequestId path int true "Swap request ID"
// @Success 200 {object} models.Response{data=object{feedback=[]models.Feedback}}
// @Failure 404 {object} models.Response
// @Router /feedback/swap/{swapRequestId} [get]
func (s *Server) GetSwapFeedback(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "swapRequestId")
	if err != nil {
		return nil
	}
	items, err := s.feedbackService.ListForSwap(c.UserContext(), swapID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"feedback": items})
}

// GetMyFeedback handles GET /api/feedback/my
// @Summary Feedback the caller gave or received
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param type query string false "given, received or all" default(all)
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=service.FeedbackList}
// @Failure 400 {object} models.Response
// @Router /feedback/my [get]
func (s *Server) GetMyFeedback(c *fiber.Ctx) error {
	page := parsePagination(c, 10)
	list, err := s.feedbackService.ListMine(c.UserContext(), currentUserID(c), c.Query("type"), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", list)
}

// UpdateFeedback handles PUT /api/feedback/:id
// @Summary Edit feedback within 24 hours of posting
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param request body service.UpdateFeedbackInput true "Changes"
// @Success 200 {object} models.Response{data=object{feedback=models.Feedback}}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /feedback/{id} [put]
func (s *Server) UpdateFeedback(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdateFeedbackInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	fb, err := s.feedbackService.Update(c.UserContext(), id, currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Feedback updated successfully", fiber.Map{"feedback": fb})
}

// DeleteFeedback handles DELETE /api/feedback/:id
// @Summary Delete feedback within 24 hours of posting
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} models.Response
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /feedback/{id} [delete]
func (s *Server) DeleteFeedback(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.feedbackService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Feedback deleted successfully", nil)
}
