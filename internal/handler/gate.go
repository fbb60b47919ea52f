package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/fingerprint"
	"github.com/iliyamo/casefiles/internal/gate"
	"github.com/iliyamo/casefiles/internal/middleware"
	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/session"
	"github.com/iliyamo/casefiles/internal/utils"
)

// GateHandler serves the passphrase gate.  It drives the visitor's
// gate.State and, once unlocked, issues the VISITOR token and takes the
// visitor's catalog snapshot.
type GateHandler struct {
	Cfg     config.Config
	Gate    *gate.Service
	Records catalog.RecordSource
	Config  catalog.ConfigSource
}

func NewGateHandler(cfg config.Config, g *gate.Service, records catalog.RecordSource, siteCfg catalog.ConfigSource) *GateHandler {
	return &GateHandler{Cfg: cfg, Gate: g, Records: records, Config: siteCfg}
}

// ----- DTOs -----

type submitReq struct {
	Password     string `json:"password"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
}

type inputReq struct {
	Value string `json:"value"`
}

type gateResp struct {
	Phase      gate.Phase `json:"phase"`
	Error      string     `json:"error,omitempty"`
	CanSubmit  bool       `json:"can_submit"`
	UnlockInMS int64      `json:"unlock_in_ms,omitempty"`
	Access     *tokenPart `json:"access,omitempty"`
	MusicURL   *string    `json:"music_url,omitempty"`
}

// State: GET /v1/gate.  Advances the unlock delay and hands out the token
// once it has passed.
func (h *GateHandler) State(c echo.Context) error {
	v, ok := middleware.CurrentVisitor(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no session"})
	}
	v.Gate = h.Gate.Advance(v.Gate)
	resp, err := h.respond(c, v)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Input: POST /v1/gate/input.  A keystroke; clears a denial.
func (h *GateHandler) Input(c echo.Context) error {
	v, ok := middleware.CurrentVisitor(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no session"})
	}
	var req inputReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v.Gate = gate.Reduce(v.Gate, gate.Typed{Value: req.Value})
	return c.JSON(http.StatusOK, gateResp{Phase: v.Gate.Phase, Error: v.Gate.Error, CanSubmit: v.Gate.CanSubmit()})
}

// Submit: POST /v1/gate.  One verification against the stored password.
func (h *GateHandler) Submit(c echo.Context) error {
	v, ok := middleware.CurrentVisitor(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no session"})
	}
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	info := fingerprint.Collect(c.Request().UserAgent(), req.ScreenWidth, req.ScreenHeight)
	st, err := h.Gate.Submit(c.Request().Context(), v.ID, v.Gate, req.Password, info)
	v.Gate = h.Gate.Advance(st)

	switch {
	case errors.Is(err, gate.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	case errors.Is(err, gate.ErrBusy):
		return c.JSON(http.StatusConflict, gateResp{Phase: v.Gate.Phase, UnlockInMS: v.Gate.RemainingDelay(time.Now()).Milliseconds()})
	case errors.Is(err, gate.ErrWrongSecret):
		return c.JSON(http.StatusUnauthorized, gateResp{Phase: v.Gate.Phase, Error: v.Gate.Error})
	case errors.Is(err, gate.ErrSystem):
		c.Logger().Errorf("gate: %v", err)
		return c.JSON(http.StatusServiceUnavailable, gateResp{Phase: v.Gate.Phase, Error: v.Gate.Error})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	resp, err := h.respond(c, v)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	if v.Gate.Phase == gate.Unlocked {
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusAccepted, resp)
}

// respond builds the gate view.  An unlocked gate carries a fresh VISITOR
// token and makes sure the catalog snapshot was taken.
func (h *GateHandler) respond(c echo.Context, v *session.Visitor) (gateResp, error) {
	resp := gateResp{
		Phase:      v.Gate.Phase,
		Error:      v.Gate.Error,
		CanSubmit:  v.Gate.CanSubmit(),
		UnlockInMS: v.Gate.RemainingDelay(time.Now()).Milliseconds(),
	}
	if v.Gate.Phase != gate.Unlocked {
		return resp, nil
	}
	if !v.Loaded {
		takeSnapshot(c, v, h.Records, h.Config)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, v.ID, model.RoleVisitor, time.Duration(h.Cfg.VisitorTTLMin)*time.Minute)
	if err != nil {
		return resp, err
	}
	resp.Access = &tokenPart{Token: access.Token, Expires: access.Exp}
	resp.MusicURL = v.MusicURL
	return resp, nil
}
