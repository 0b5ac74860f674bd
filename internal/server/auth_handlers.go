package server

import (
	"strings"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// authResult is the data of signup and login responses.
type authResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,firstName=string,lastName=string} true "Signup request"
// @Success 201 {object} models.Response{data=authResult}
// @Failure 400 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Location  string `json:"location"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	var errs validation.Errors
	if err := validation.ValidateEmail(req.Email); err != nil {
		errs.Add("email", "%s", err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		errs.Add("password", "%s", err.Error())
	}
	errs.Length("firstName", strings.TrimSpace(req.FirstName), 2, 50)
	errs.Length("lastName", strings.TrimSpace(req.LastName), 2, 50)
	errs.Length("location", strings.TrimSpace(req.Location), 0, 100)
	if err := errs.Err(); err != nil {
		return s.respondError(c, err)
	}

	existing, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return s.respondError(c, err)
	}
	if existing != nil {
		return s.respondError(c, models.NewConflictError("An account with this email already exists", nil))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Location:  strings.TrimSpace(req.Location),
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		return s.respondError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusCreated, "Account created successfully", authResult{Token: token, User: user})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} models.Response{data=authResult}
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if req.Email == "" || req.Password == "" {
		return s.respondError(c, models.NewValidationError("Email and password are required"))
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return s.respondError(c, err)
	}
	if user == nil {
		return s.respondError(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return s.respondError(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusOK, "Login successful", authResult{Token: token, User: user})
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=object{user=models.User}}
// @Failure 401 {object} models.Response
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "", fiber.Map{"user": user})
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Change password
// @Description Replace the password and revoke the token used for the request
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPassword=string,newPassword=string} true "Passwords"
// @Success 200 {object} models.Response{data=object{token=string}}
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Router /auth/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		return s.respondError(c, models.NewValidationError("Validation error",
			models.FieldError{Field: "newPassword", Message: err.Error()}))
	}

	userID := currentUserID(c)
	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); cmpErr != nil {
		return s.respondError(c, models.NewUnauthorizedError("Current password is incorrect"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	if err := s.userRepo.Update(c.UserContext(), userID, map[string]interface{}{"password": string(hashedPassword)}); err != nil {
		return s.respondError(c, err)
	}

	s.revokeCurrentToken(c)

	token, err := s.generateToken(userID)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return respondData(c, fiber.StatusOK, "Password changed successfully", fiber.Map{"token": token})
}

// revokeCurrentToken blacklists the request's jti until the token would have expired.
func (s *Server) revokeCurrentToken(c *fiber.Ctx) {
	jti, _ := c.Locals("jti").(string)
	if jti == "" || s.redis == nil {
		return
	}
	ttl := middleware.TokenTTL
	if exp, ok := c.Locals("tokenExpiresAt").(time.Time); ok && !exp.IsZero() {
		ttl = time.Until(exp)
	}
	if ttl <= 0 {
		return
	}
	if err := s.redis.Set(c.UserContext(), blacklistKey+jti, "1", ttl).Err(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token")
	}
}

// generateToken creates a JWT token for the given user ID
func (s *Server) generateToken(userID uint) (string, error) {
	return middleware.IssueToken(s.tokens, userID, generateJTI(), time.Now())
}

// generateJTI creates a unique JWT ID so individual tokens can be revoked
func generateJTI() string {
	return uuid.NewString()
}
