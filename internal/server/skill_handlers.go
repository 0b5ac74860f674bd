package server

import (
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSkills handles GET /api/skills
// @Summary Browse the skill catalog
// @Tags skills
// @Produce json
// @Security BearerAuth
// @Param category query string false "Exact category"
// @Param search query string false "Name or description substring"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=service.SkillList}
// @Router /skills [get]
func (s *Server) GetSkills(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	list, err := s.skillService.List(c.UserContext(), service.SkillListInput{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", list)
}

// SearchSkills handles GET /api/skills/search
// @Summary Search skills by name
// @Tags skills
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Param category query string false "Exact category"
// @Success 200 {object} models.Response{data=object{skills=[]models.Skill}}
// @Failure 400 {object} models.Response
// @Router /skills/search [get]
func (s *Server) SearchSkills(c *fiber.Ctx) error {
	skills, err := s.skillService.Search(c.UserContext(), c.Query("q"), c.Query("category"))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"skills": skills})
}

// GetSkillCategories handles GET /api/skills/categories
// @Summary List skill categories
// @Tags skills
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=object{categories=[]string}}
// @Router /skills/categories [get]
func (s *Server) GetSkillCategories(c *fiber.Ctx) error {
	categories, err := s.skillService.Categories(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"categories": categories})
}

// GetPopularSkills handles GET /api/skills/popular
// @Summary Most linked skills
// @Tags skills
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of skills" default(10)
// @Success 200 {object} models.Response{data=object{skills=[]models.Skill}}
// @Router /skills/popular [get]
func (s *Server) GetPopularSkills(c *fiber.Ctx) error {
	skills, err := s.skillService.Popular(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"skills": skills})
}

// GetSkill handles GET /api/skills/:id
// @Summary Skill detail
// @Tags skills
// @Produce json
// @Security BearerAuth
// @Param id path int true "Skill ID"
// @Success 200 {object} models.Response{data=object{skill=models.Skill}}
// @Failure 404 {object} models.Response
// @Router /skills/{id} [get]
func (s *Server) GetSkill(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	skill, err := s.skillService.GetByID(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"skill": skill})
}

// CreateSkill handles POST /api/skills
// @Summary Create a custom skill
// @Tags skills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateSkillInput true "Skill"
// @Success 201 {object} models.Response{data=object{skill=models.Skill}}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Router /skills [post]
func (s *Server) CreateSkill(c *fiber.Ctx) error {
	var req service.CreateSkillInput
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	skill, err := s.skillService.CreateCustom(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Custom skill created successfully", fiber.Map{"skill": skill})
}
