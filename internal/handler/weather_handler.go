package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
	"github.com/fakhrymubarak/weather-forecast-app/internal/repository"
	"github.com/fakhrymubarak/weather-forecast-app/internal/service"
)

const maxBodyBytes = 1 << 20

type WeatherHandler struct {
	Controller service.ControllerInterface
	Logger     *zap.SugaredLogger
}

func NewWeatherHandler(ctrl service.ControllerInterface, logger *zap.SugaredLogger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WeatherHandler{Controller: ctrl, Logger: logger}
}

// RegisterRoutes mounts the rendering-layer endpoints on r.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.HandleState)
	r.Post("/search/toggle", h.HandleToggleSearch)
	r.Post("/search/text", h.HandleTextChanged)
	r.Post("/search/select", h.HandleSelectLocation)
	r.Get("/forecast/labels", h.HandleForecastLabels)
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data model.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Errorw("Could not encode json", "error", err)
	}
}

func (h *WeatherHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		h.writeJSONResponse(w, http.StatusBadRequest, model.Failure("Invalid JSON body"))
		return false
	}
	return true
}

func (h *WeatherHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, model.Success(h.Controller.State()))
}

func (h *WeatherHandler) HandleToggleSearch(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, model.Success(h.Controller.ToggleSearch()))
}

type textChangedRequest struct {
	Text *string `json:"text"`
}

// HandleTextChanged accepts the keystroke and returns immediately; the lookup is debounced.
func (h *WeatherHandler) HandleTextChanged(w http.ResponseWriter, r *http.Request) {
	var req textChangedRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		h.writeJSONResponse(w, http.StatusBadRequest, model.Failure("Missing 'text' field"))
		return
	}

	h.Controller.OnTextChanged(*req.Text)
	h.writeJSONResponse(w, http.StatusAccepted, model.Success(h.Controller.State()))
}

func (h *WeatherHandler) HandleSelectLocation(w http.ResponseWriter, r *http.Request) {
	var candidate model.LocationCandidate
	if !h.decodeBody(w, r, &candidate) {
		return
	}
	if strings.TrimSpace(candidate.Name) == "" {
		h.writeJSONResponse(w, http.StatusBadRequest, model.Failure("Missing 'name' field"))
		return
	}

	// The fetch outlives a disconnecting client so the controller never keeps loading=true.
	err := h.Controller.SelectLocation(context.WithoutCancel(r.Context()), candidate)
	if err != nil {
		status, msg := classify(err)
		h.Logger.Warnw("Select location failed", "name", candidate.Name, "status", status, "error", err)
		resp := model.Failure(msg)
		resp.Data = h.Controller.State()
		h.writeJSONResponse(w, status, resp)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, model.Success(h.Controller.State()))
}

func (h *WeatherHandler) HandleForecastLabels(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, model.Success(h.Controller.NextSevenDayLabels()))
}

// classify maps controller errors to an HTTP status and a client-safe message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSuperseded):
		return http.StatusConflict, "Superseded by a newer selection"
	case errors.Is(err, repository.ErrLocationNotFound):
		return http.StatusNotFound, "Location not found"
	case errors.Is(err, repository.ErrEmptyQuery), errors.Is(err, repository.ErrInvalidDays):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrAPIKeyMissing):
		return http.StatusServiceUnavailable, "Weather provider is not configured"
	}
	if _, ok := repository.AsFetchError(err); ok {
		return http.StatusBadGateway, "Failed to fetch weather data"
	}
	return http.StatusInternalServerError, "Internal error"
}
