// Package user provides the admin API for inspecting provisioned users.
package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/user"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler"
)

const (
	// Path is the base path for user administration.
	Path = handler.APIPath + "/admin/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// MaxPageSize callers may request.
	MaxPageSize = 100
)

// Service provides read access to the provisioned users.
type Service struct {
	cfg   *config.Config
	users *user.Service
}

// Handler is the exported instance.
var Handler = Service{}

// entry is the wire format of a single user in the listing.
type entry struct {
	ID       uint64   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Active   bool     `json:"active"`
	External bool     `json:"external"`
	Roles    []string `json:"roles"`
}

// listResponse is the wire format of the user listing.
type listResponse struct {
	Users []entry `json:"users"`
	Total int64   `json:"total"`
}

// Init registers the user administration routes on the admin router.
func (s *Service) Init(router fiber.Router, cfg *config.Config, users *user.Service) {
	if router == nil || cfg == nil || users == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.users = users

	router.Get("/admin/users", s.List)
	router.Get("/admin/users/:id", s.Get)
}

// List shows users with simple pagination.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	users, total, err := s.users.List(pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	resp := listResponse{
		Users: make([]entry, 0, len(users)),
		Total: total,
	}

	for i := range users {
		resp.Users = append(resp.Users, toEntry(&users[i]))
	}

	return c.JSON(resp)
}

// Get shows a single user by ID.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
	}

	u, err := s.users.LoadByID(uint64(id))
	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to load user")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	if u == nil {
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	}

	return c.JSON(toEntry(u))
}

func toEntry(u *models.User) entry {
	return entry{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Active:   u.Active,
		External: u.External,
		Roles:    u.RoleNames(),
	}
}
