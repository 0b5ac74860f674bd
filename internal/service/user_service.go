package service

import (
	"context"
	"strings"

	"skillswap/internal/cache"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"
)

// OnlineChecker reports live notification connections.
type OnlineChecker interface {
	IsOnline(userID uint) bool
}

// UserProfile is a user plus the derived fields shown on profile pages.
type UserProfile struct {
	models.User
	FeedbackStats models.FeedbackStats `json:"feedbackStats"`
	IsOnline      *bool                `json:"isOnline,omitempty"`
}

// UpdateProfileInput carries the fields to change; nil leaves a field as is.
type UpdateProfileInput struct {
	FirstName         *string                   `json:"firstName"`
	LastName          *string                   `json:"lastName"`
	Location          *string                   `json:"location"`
	Bio               *string                   `json:"bio"`
	ProfileVisibility *models.ProfileVisibility `json:"profileVisibility"`
	IsAvailable       *bool                     `json:"isAvailable"`
}

// UserSearchInput filters the public directory.
type UserSearchInput struct {
	Skill     string
	SkillType string
	Location  string
	Available bool
	Limit     int
	Offset    int
}

// UserList is one page of users.
type UserList struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// AddUserSkillInput links a catalog skill to the caller.
type AddUserSkillInput struct {
	SkillID   uint             `json:"skillId"`
	SkillType models.SkillType `json:"skillType"`
	Level     int              `json:"level"`
}

// AvailabilityInput describes when the caller is free to swap.
type AvailabilityInput struct {
	AvailabilityType models.AvailabilityType `json:"availabilityType"`
	StartTime        string                  `json:"startTime"`
	EndTime          string                  `json:"endTime"`
	DaysOfWeek       []string                `json:"daysOfWeek"`
}

type UserService struct {
	users        repository.UserRepository
	skills       repository.SkillRepository
	userSkills   repository.UserSkillRepository
	availability repository.AvailabilityRepository
	feedback     *FeedbackService
	online       OnlineChecker
}

func NewUserService(
	users repository.UserRepository,
	skills repository.SkillRepository,
	userSkills repository.UserSkillRepository,
	availability repository.AvailabilityRepository,
	feedback *FeedbackService,
	online OnlineChecker,
) *UserService {
	return &UserService{
		users:        users,
		skills:       skills,
		userSkills:   userSkills,
		availability: availability,
		feedback:     feedback,
		online:       online,
	}
}

// GetProfile returns the caller's own profile with skills, availability and stats.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*UserProfile, error) {
	user, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &UserProfile{User: *user}
	if s.feedback != nil {
		if profile.FeedbackStats, err = s.feedback.Aggregate(ctx, userID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	var errs validation.Errors
	errs.OptionalLength("firstName", in.FirstName, 2, 50)
	errs.OptionalLength("lastName", in.LastName, 2, 50)
	errs.OptionalLength("location", in.Location, 0, 100)
	errs.OptionalLength("bio", in.Bio, 0, 500)
	if in.ProfileVisibility != nil {
		errs.Check(in.ProfileVisibility.Valid(), "profileVisibility", "profileVisibility must be one of [PUBLIC, PRIVATE]")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	setTrimmed := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	setTrimmed("first_name", in.FirstName)
	setTrimmed("last_name", in.LastName)
	setTrimmed("location", in.Location)
	setTrimmed("bio", in.Bio)
	if in.ProfileVisibility != nil {
		fields["profile_visibility"] = *in.ProfileVisibility
	}
	if in.IsAvailable != nil {
		fields["is_available"] = *in.IsAvailable
	}

	if err := s.users.Update(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// GetPublicProfile returns another member's profile. PRIVATE profiles are
// only visible to their owner; email is only shown to the owner.
func (s *UserService) GetPublicProfile(ctx context.Context, viewerID, userID uint) (*UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	own := viewerID == userID
	if !own && !profile.IsPublic() {
		return nil, models.NewForbiddenError("This profile is private")
	}
	if !own {
		profile.Email = ""
	}
	if s.online != nil {
		online := s.online.IsOnline(userID)
		profile.IsOnline = &online
	}
	return profile, nil
}

func (s *UserService) Search(ctx context.Context, in UserSearchInput) (*UserList, error) {
	skillType := models.SkillType(strings.ToUpper(strings.TrimSpace(in.SkillType)))
	if skillType != "" && !skillType.Valid() {
		return nil, models.NewValidationError("Validation error",
			models.FieldError{Field: "skillType", Message: "skillType must be one of [OFFERED, WANTED]"})
	}

	page := normalizePage(in.Limit, in.Offset, 20)
	users, total, err := s.users.Search(ctx, repository.UserSearchFilter{
		Skill:     strings.TrimSpace(in.Skill),
		SkillType: skillType,
		Location:  strings.TrimSpace(in.Location),
		Available: in.Available,
		Page:      page,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	for i := range users {
		users[i].Email = ""
	}
	return &UserList{Users: users, Pagination: newPagination(total, page)}, nil
}

func (s *UserService) AddSkill(ctx context.Context, userID uint, in AddUserSkillInput) (*models.UserSkill, error) {
	in.SkillType = models.SkillType(strings.ToUpper(string(in.SkillType)))
	if in.Level == 0 {
		in.Level = 1
	}
	var errs validation.Errors
	errs.Check(in.SkillID > 0, "skillId", "skillId is required")
	errs.Check(in.SkillType.Valid(), "skillType", "skillType must be one of [OFFERED, WANTED]")
	errs.Range("level", in.Level, 1, 5)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if _, err := s.skills.GetByID(ctx, in.SkillID); err != nil {
		return nil, err
	}
	exists, err := s.userSkills.Exists(ctx, userID, in.SkillID, in.SkillType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateUserSkill()
	}

	us := &models.UserSkill{UserID: userID, SkillID: in.SkillID, SkillType: in.SkillType, Level: in.Level}
	if err := s.userSkills.Create(ctx, us); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return nil, errDuplicateUserSkill()
		}
		return nil, err
	}
	cache.InvalidatePopularSkills(ctx)
	return us, nil
}

func errDuplicateUserSkill() error {
	return models.NewBusinessRuleError("You already have this skill with this type")
}

func (s *UserService) RemoveSkill(ctx context.Context, userID, userSkillID uint) error {
	us, err := s.userSkills.GetForUser(ctx, userSkillID, userID)
	if err != nil {
		return err
	}
	if err := s.userSkills.Delete(ctx, us.ID); err != nil {
		return err
	}
	cache.InvalidatePopularSkills(ctx)
	return nil
}

func (s *UserService) AddAvailability(ctx context.Context, userID uint, in AvailabilityInput) (*models.UserAvailability, error) {
	in.AvailabilityType = models.AvailabilityType(strings.ToUpper(string(in.AvailabilityType)))
	var errs validation.Errors
	errs.Check(in.AvailabilityType.Valid(), "availabilityType",
		"availabilityType must be one of [WEEKDAYS, WEEKENDS, EVENINGS, MORNINGS, FLEXIBLE]")
	if in.StartTime != "" {
		errs.Check(validation.ValidTimeOfDay(in.StartTime), "startTime", "startTime must be in HH:MM format")
	}
	if in.EndTime != "" {
		errs.Check(validation.ValidTimeOfDay(in.EndTime), "endTime", "endTime must be in HH:MM format")
	}
	errs.Check(validation.ValidWeekdays(in.DaysOfWeek), "daysOfWeek", "daysOfWeek must contain lowercase weekday names")
	if err := errs.Err(); err != nil {
		return nil, err
	}

	a := &models.UserAvailability{
		UserID:           userID,
		AvailabilityType: in.AvailabilityType,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		DaysOfWeek:       models.NewDayList(in.DaysOfWeek),
	}
	if err := s.availability.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *UserService) RemoveAvailability(ctx context.Context, userID, id uint) error {
	a, err := s.availability.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.availability.Delete(ctx, a.ID)
}
