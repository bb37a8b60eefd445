package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/engine"
	apperrors "github.com/mjelva/netwarden/internal/errors"
)

const maxHistoryLimit = 500

// healthHandler reports service liveness plus dependency checks.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string)

	if s.history != nil {
		if err := s.history.Ping(ctx); err != nil {
			status = "unhealthy"
			checks["database"] = "failed: " + err.Error()
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, r, statusCode, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
	})
}

// statusHandler returns the live scan session status.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.orchestrator.State().Status())
}

// devicesHandler returns the current device set in normalized order.
func (s *Server) devicesHandler(w http.ResponseWriter, r *http.Request) {
	devices := s.orchestrator.State().Devices()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

// scoreHandler returns the aggregate health score of the device set.
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	state := s.orchestrator.State()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"health_score": state.HealthScore(),
		"device_count": len(state.Devices()),
	})
}

// scanRequest is the optional POST /scan body.
type scanRequest struct {
	Intensity string `json:"intensity" validate:"omitempty,oneof=active passive"`
}

// scanHandler triggers a scan session. Returns 202 when a session was
// started and 409 when one is already running.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := s.parseBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, string(apperrors.CodeValidation), err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, string(apperrors.CodeValidation),
			fmt.Errorf("invalid scan request: %w", err))
		return
	}

	// The session must outlive this request.
	err := s.orchestrator.StartScanAsync(context.Background(), engine.Intensity(req.Intensity))
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeScanInProgress) {
			s.writeError(w, r, http.StatusConflict, string(apperrors.CodeScanInProgress), err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, string(apperrors.GetCode(err)), err)
		return
	}

	s.writeJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"status":    "started",
		"timestamp": time.Now().UTC(),
	})
}

// historyHandler lists stored scan records, newest first.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, string(apperrors.CodeServiceUnavailable),
			errors.New("scan history is not configured"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryLimit {
			s.writeError(w, r, http.StatusBadRequest, string(apperrors.CodeValidation),
				fmt.Errorf("invalid limit: %q", raw))
			return
		}
		limit = parsed
	}

	records, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, string(apperrors.GetCode(err)), err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"scans": records,
		"count": len(records),
	})
}

// parseBody decodes an optional JSON request body. An empty body leaves
// the target untouched.
func (s *Server) parseBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// deviceSetSummary is reused by the websocket hub for full-state pushes.
type deviceSetSummary struct {
	Devices     []device.Device `json:"devices"`
	HealthScore int             `json:"health_score"`
}
