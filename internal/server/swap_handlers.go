package server

import (
	"fmt"
	"strings"

	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateSwapRequest handles POST /api/swaps
// @Summary Propose a skill swap
// @Description Offer one of your skills in exchange for one the receiver offers
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateSwapInput true "Swap request"
// @Success 201 {object} models.Response{data=object{swapRequest=models.SwapRequest}}
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /swaps [post]
func (s *Server) CreateSwapRequest(c *fiber.Ctx) error {
	var req service.CreateSwapInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	swap, err := s.swapService.Create(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Swap request sent successfully", fiber.Map{"swapRequest": swap})
}

// GetSwapRequests handles GET /api/swaps
// @Summary List the caller's swap requests
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param type query string false "sent, received or all" default(all)
// @Param status query string false "Lifecycle status"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=service.SwapList}
// @Failure 400 {object} models.Response
// @Router /swaps [get]
func (s *Server) GetSwapRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	list, err := s.swapService.List(c.UserContext(), currentUserID(c), service.SwapListInput{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", list)
}

// GetSwapRequest handles GET /api/swaps/:id
// @Summary Swap request detail
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap request ID"
// @Success 200 {object} models.Response{data=object{swapRequest=models.SwapRequest}}
// @Failure 404 {object} models.Response
// @Router /swaps/{id} [get]
func (s *Server) GetSwapRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	swap, err := s.swapService.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"swapRequest": swap})
}

// UpdateSwapStatus handles PUT /api/swaps/:id/status
// @Summary Move a swap request through its lifecycle
// @Description Receiver accepts or rejects, sender cancels, either participant completes
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap request ID"
// @Param request body service.TransitionInput true "Target status"
// @Success 200 {object} models.Response{data=object{swapRequest=models.SwapRequest}}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /swaps/{id}/status [put]
func (s *Server) UpdateSwapStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.TransitionInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	swap, err := s.swapService.Transition(c.UserContext(), id, currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	msg := fmt.Sprintf("Swap request %s successfully", strings.ToLower(string(swap.Status)))
	return respondData(c, fiber.StatusOK, msg, fiber.Map{"swapRequest": swap})
}

// CancelSwapRequest handles DELETE /api/swaps/:id
// @Summary Cancel a pending or accepted request you sent
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap request ID"
// @Param request body object{cancelReason=string} false "Optional reason"
// @Success 200 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /swaps/{id} [delete]
func (s *Server) CancelSwapRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		CancelReason *string `json:"cancelReason"`
	}
	if len(c.Body()) > 0 {
		if err := s.parseBody(c, &req); err != nil {
			return nil
		}
	}
	if _, err := s.swapService.Cancel(c.UserContext(), id, currentUserID(c), req.CancelReason); err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Swap request cancelled successfully", nil)
}

// DeleteSwapRequest handles DELETE /api/swaps/:id/delete
// @Summary Delete a finished swap request
// @Description Only REJECTED, CANCELLED or COMPLETED requests can be deleted
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap request ID"
// @Success 200 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /swaps/{id}/delete [delete]
func (s *Server) DeleteSwapRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.swapService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Swap request deleted successfully", nil)
}
