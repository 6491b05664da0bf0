// Package relay exposes the login and signup pass-through endpoints.
package relay

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/identity"
	"github.com/saldo-app/saldo/internal/middleware"
)

// Handler forwards credentials to the data service. It keeps no state
// between requests.
type Handler struct {
	auth     dataservice.Auth
	identity *identity.Service
	logger   *slog.Logger
}

// NewHandler constructs a relay handler.
func NewHandler(client dataservice.Client, logger *slog.Logger) *Handler {
	return &Handler{auth: client.Auth, identity: identity.NewService(client, logger), logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupRequest also accepts the nome/cpf keys older clients send.
type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Nome       string `json:"nome"`
	CPF        string `json:"cpf"`
}

func (r signupRequest) registration() identity.Registration {
	reg := identity.Registration{Email: r.Email, Password: r.Password, Name: r.Name, NationalID: r.NationalID}
	if reg.Name == "" {
		reg.Name = r.Nome
	}
	if reg.NationalID == "" {
		reg.NationalID = r.CPF
	}
	return reg
}

type userResponse struct {
	User dataservice.User `json:"user"`
}

// Login handles POST /login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session, err := h.auth.SignIn(c.UserContext(), dataservice.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return serviceError(err)
	}
	return c.Status(http.StatusOK).JSON(userResponse{User: session.User})
}

// Signup handles POST /signup: account creation followed by the profile row.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.identity.SignUp(c.UserContext(), req.registration())
	if err != nil {
		return serviceError(err)
	}
	return c.Status(http.StatusOK).JSON(userResponse{User: user})
}

// Me returns the caller's user and profile. It runs behind RequireSession.
func (h *Handler) Me(c *fiber.Ctx) error {
	session, ok := c.Locals(middleware.LocalSession).(dataservice.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	profile, err := h.identity.Profile(c.UserContext(), session.User.ID)
	if err != nil {
		if errors.Is(err, dataservice.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "profile not found")
		}
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"user": session.User, "profile": profile})
}

// Data-service failures are reported as 400 with the service message.
func serviceError(err error) error {
	return fiber.NewError(http.StatusBadRequest, err.Error())
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
