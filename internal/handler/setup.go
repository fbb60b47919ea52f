package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/utils"
)

// SetupHandler provisions administrators through the one-shot bootstrap
// endpoint, gated by the static setup key and the admin cap.
type SetupHandler struct {
	Cfg    config.Config
	Admins *repository.AdminRepo
}

func NewSetupHandler(cfg config.Config, a *repository.AdminRepo) *SetupHandler {
	return &SetupHandler{Cfg: cfg, Admins: a}
}

type setupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	SetupKey string `json:"setupKey"`
}

// CreateAdmin: POST /v1/setup/admin.  Each failure has its own message;
// identity and admin rows are written in one transaction.
func (h *SetupHandler) CreateAdmin(c echo.Context) error {
	var req setupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if subtle.ConstantTimeCompare([]byte(req.SetupKey), []byte(h.Cfg.SetupKey)) != 1 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid setup key"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email and password required"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ident, err := h.Admins.Provision(ctx, email, hash, model.MaxAdmins)
	if errors.Is(err, repository.ErrAdminCapReached) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("Maximum %d admins allowed", model.MaxAdmins)})
	}
	var perr *repository.ProvisionError
	if errors.As(err, &perr) {
		switch perr.Step {
		case repository.StepIdentity:
			if errors.Is(perr, repository.ErrEmailExists) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "A user with this email address has already been registered"})
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "create identity failed"})
		case repository.StepAdmin:
			c.Logger().Errorf("provision admin row: %v", perr.Err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create admin failed"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count admins failed"})
		}
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "provision failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":  true,
		"message":  "Admin created successfully",
		"admin_id": ident.ID,
	})
}
