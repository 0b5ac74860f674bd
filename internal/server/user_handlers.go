package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/profile
// @Summary Current user's profile
// @Description Profile with skills, availability and received feedback stats
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=object{user=service.UserProfile}}
// @Failure 404 {object} models.Response
// @Router /users/profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"user": profile})
}

// UpdateMyProfile handles PUT /api/users/profile
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Fields to change"
// @Success 200 {object} models.Response{data=object{user=models.User}}
// @Failure 400 {object} models.Response
// @Router /users/profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"user": user})
}

// UploadProfilePhoto handles POST /api/users/profile/photo
// @Summary Upload profile photo
// @Description Multipart field "photo"; stored as a square WebP
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Image (jpeg, png, gif or webp)"
// @Success 200 {object} models.Response{data=object{user=models.User}}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Router /users/profile/photo [post]
func (s *Server) UploadProfilePhoto(c *fiber.Ctx) error {
	if s.photoService == nil {
		return s.respondError(c, models.NewForbiddenError("Photo uploads are not configured"))
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return s.respondError(c, models.NewValidationError("No file uploaded"))
	}
	if fileHeader.Size > s.photoService.MaxBytes() {
		return s.respondError(c, models.NewValidationError(
			"File too large. Maximum size is "+humanMB(s.photoService.MaxBytes())))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.respondError(c, models.NewValidationError("Invalid image file"))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, s.photoService.MaxBytes()+1))
	if err != nil {
		return s.respondError(c, models.NewValidationError("Invalid image file"))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	user, err := s.photoService.Upload(ctx, currentUserID(c), service.PhotoUploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Profile photo updated successfully", fiber.Map{"user": user})
}

// DeleteProfilePhoto handles DELETE /api/users/profile/photo
// @Summary Remove profile photo
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=object{user=models.User}}
// @Failure 404 {object} models.Response
// @Router /users/profile/photo [delete]
func (s *Server) DeleteProfilePhoto(c *fiber.Ctx) error {
	if s.photoService == nil {
		return s.respondError(c, models.NewNotFoundMessage("Profile photo not found"))
	}
	user, err := s.photoService.Remove(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Profile photo removed successfully", fiber.Map{"user": user})
}

// SearchUsers handles GET /api/users/search
// @Summary Search public profiles
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param skill query string false "Skill name substring"
// @Param skillType query string false "OFFERED or WANTED"
// @Param location query string false "Location substring"
// @Param available query bool false "Only users open to swaps"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=service.UserList}
// @Failure 400 {object} models.Response
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	page := parsePagination(c, 20)
	list, err := s.userService.Search(ctx, service.UserSearchInput{
		Skill:     c.Query("skill"),
		SkillType: c.Query("skillType"),
		Location:  c.Query("location"),
		Available: c.QueryBool("available", false),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(models.Response{
				Success: false,
				Message: "Request timeout",
			})
		}
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", list)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Another member's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.Response{data=object{user=service.UserProfile}}
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetPublicProfile(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"user": profile})
}

// AddUserSkill handles POST /api/users/skills
// @Summary Offer or request a skill
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AddUserSkillInput true "Skill link"
// @Success 201 {object} models.Response{data=object{userSkill=models.UserSkill}}
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/skills [post]
func (s *Server) AddUserSkill(c *fiber.Ctx) error {
	var req service.AddUserSkillInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	us, err := s.userService.AddSkill(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Skill added successfully", fiber.Map{"userSkill": us})
}

// RemoveUserSkill handles DELETE /api/users/skills/:id
// @Summary Remove one of the caller's skills
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User skill ID"
// @Success 200 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/skills/{id} [delete]
func (s *Server) RemoveUserSkill(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.RemoveSkill(c.UserContext(), currentUserID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Skill removed successfully", nil)
}

// AddAvailability handles POST /api/users/availability
// @Summary Add an availability window
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AvailabilityInput true "Availability"
// @Success 201 {object} models.Response{data=object{availability=models.UserAvailability}}
// @Failure 400 {object} models.Response
// @Router /users/availability [post]
func (s *Server) AddAvailability(c *fiber.Ctx) error {
	var req service.AvailabilityInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	a, err := s.userService.AddAvailability(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Availability added successfully", fiber.Map{"availability": a})
}

// RemoveAvailability handles DELETE /api/users/availability/:id
// @Summary Remove an availability window
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "Availability ID"
// @Success 200 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/availability/{id} [delete]
func (s *Server) RemoveAvailability(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.RemoveAvailability(c.UserContext(), currentUserID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Availability removed successfully", nil)
}

func humanMB(bytes int64) string {
	return fmt.Sprintf("%dMB", bytes/(1024*1024))
}
