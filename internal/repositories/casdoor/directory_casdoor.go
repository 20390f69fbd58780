package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// DirectoryCasdoor resolves users and course enrollment against Casdoor,
// caching lookups in redis. Enrollment is read from the "course_ids"
// property on the directory user.
type DirectoryCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	config CasdoorConfig

	cachePrefix string
	cacheTTL    time.Duration
}

func NewDirectoryRepository(config *CasdoorConfig, redisClient *redis.Client) (repositories.DirectoryRepository, error) {
	if config == nil {
		return nil, fmt.Errorf("casdoor config is required")
	}

	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &DirectoryCasdoor{
		client:      client,
		redis:       redisClient,
		config:      *config,
		cachePrefix: "user:",
		cacheTTL:    15 * time.Minute,
	}, nil
}

func (d *DirectoryCasdoor) getCacheKey(key string) string {
	return fmt.Sprintf("%s%s", d.cachePrefix, key)
}

func (d *DirectoryCasdoor) getUserFromCache(ctx context.Context, key string) (*models.User, error) {
	if d.redis == nil {
		return nil, nil // Cache not available
	}

	cacheKey := d.getCacheKey(key)
	data, err := d.redis.Get(ctx, cacheKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not found in cache
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	return &user, nil
}

func (d *DirectoryCasdoor) setUserCache(ctx context.Context, key string, user *models.User) error {
	if d.redis == nil {
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user for cache: %w", err)
	}

	cacheKey := d.getCacheKey(key)
	return d.redis.Set(ctx, cacheKey, data, d.cacheTTL).Err()
}

func (d *DirectoryCasdoor) convertCasdoorUserToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	return &models.User{
		ID:        casdoorUser.Id,
		Name:      casdoorUser.DisplayName,
		Email:     casdoorUser.Email,
		Role:      d.convertCasdoorRolesToModel(casdoorUser),
		CourseIDs: parseCourseIDs(casdoorUser.Properties["course_ids"]),
	}
}

func (d *DirectoryCasdoor) convertCasdoorRolesToModel(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	for _, casdoorRole := range casdoorUser.Roles {
		switch strings.ToLower(casdoorRole.Name) {
		case "admin", "administrator":
			return models.RoleAdmin
		case "teacher", "instructor":
			return models.RoleInstructor
		}
	}

	return models.RoleLearner
}

// parseCourseIDs reads a comma-separated course id list, tolerating blanks
// and malformed entries.
func parseCourseIDs(raw string) []uint {
	if raw == "" {
		return nil
	}

	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// GetByID retrieves a user by ID
func (d *DirectoryCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	if cachedUser, err := d.getUserFromCache(ctx, cacheKey); err == nil && cachedUser != nil {
		return cachedUser, nil
	}

	casdoorUser, err := d.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}

	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with ID %s", id)
	}

	user := d.convertCasdoorUserToModel(casdoorUser)
	if user == nil {
		return nil, fmt.Errorf("failed to convert Casdoor user")
	}

	d.setUserCache(ctx, cacheKey, user)

	return user, nil
}

// IsEnrolled checks course membership as recorded on the directory user.
func (d *DirectoryCasdoor) IsEnrolled(ctx context.Context, learnerID string, courseID uint) (bool, error) {
	user, err := d.GetByID(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return user.IsEnrolledIn(courseID), nil
}
