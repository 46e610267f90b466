package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"weddingmemories/internal/delivery/http/helpers"
	"weddingmemories/internal/delivery/http/middleware"
	"weddingmemories/internal/domain"
)

type EventController struct {
	Logger        *slog.Logger
	Events        domain.EventService
	Contributions domain.ContributionService
	Media         domain.MediaService
}

func NewEventController(logger *slog.Logger, events domain.EventService, contributions domain.ContributionService, media domain.MediaService) *EventController {
	return &EventController{
		Logger:        logger,
		Events:        events,
		Contributions: contributions,
		Media:         media,
	}
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	CoupleNames string    `json:"couple_names"`
	Venue       string    `json:"venue"`
	WeddingDate time.Time `json:"wedding_date"`
}

// Validate implements helpers.Validator.
func (r *CreateEventRequest) Validate() []string {
	var errs []string
	if r.CoupleNames == "" {
		errs = append(errs, "couple_names is required")
	}
	if r.WeddingDate.IsZero() {
		errs = append(errs, "wedding_date is required")
	}
	return errs
}

// CreateEvent godoc
// @Summary Create a wedding event
// @Description Creates an event owned by the authenticated user, with its stats row, default RSVP settings, and an issued QR code URL.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateEventRequest true "Event fields"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Events.Create(r.Context(), userID, req.CoupleNames, req.Venue, req.WeddingDate)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event. Public: guests load the wedding page with it.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	event, err := c.Events.Get(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListMyEvents godoc
// @Summary List the authenticated owner's events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /my/events [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Events.ListByOwner(r.Context(), userID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// PatchEvent godoc
// @Summary Update event fields
// @Description Applies a typed partial update. Owner only. The QR code URL cannot be changed.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body domain.EventPatch true "Fields to update"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) PatchEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var patch domain.EventPatch
	if !helpers.DecodeAndValidate(w, r, &patch) {
		return
	}
	event, err := c.Events.Patch(r.Context(), eventID, userID, &patch)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event and everything under it
// @Description Cascade-deletes all contributions and stored media. A partial failure releasing blobs is reported, not swallowed.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: partial_delete"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Events.Delete(r.Context(), eventID, userID); err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": eventID})
}

// UpdateRSVPSettings godoc
// @Summary Update RSVP settings
// @Description Applies a typed partial update to the event's RSVP settings. Owner only.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body domain.RSVPSettingsPatch true "Fields to update"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/rsvp-settings [patch]
func (c *EventController) UpdateRSVPSettings(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var patch domain.RSVPSettingsPatch
	if !helpers.DecodeAndValidate(w, r, &patch) {
		return
	}
	settings, err := c.Contributions.UpdateSettings(r.Context(), eventID, userID, &patch)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, settings)
}

// ListRSVPResponses godoc
// @Summary List an event's RSVP responses
// @Description Full response rows including contact details. Owner only; guests read aggregate counts from the stats endpoint instead.
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/rsvp-responses [get]
func (c *EventController) ListRSVPResponses(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Events.Get(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	if event.OwnerID != userID {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		return
	}
	responses, err := c.Contributions.ListResponses(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, responses)
}

// DeleteWish godoc
// @Summary Delete a wish
// @Tags wishes
// @Produce json
// @Security BearerAuth
// @Param wishID path string true "Wish ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /wishes/{wishID} [delete]
func (c *EventController) DeleteWish(w http.ResponseWriter, r *http.Request) {
	wishID := r.PathValue("wishID")
	if !uuidRegex.MatchString(wishID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid wishID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Contributions.DeleteWish(r.Context(), wishID, userID); err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": wishID})
}

// DeletePhoto godoc
// @Summary Delete a photo and release its stored object
// @Tags photos
// @Produce json
// @Security BearerAuth
// @Param photoID path string true "Photo ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: partial_delete"
// @Router /photos/{photoID} [delete]
func (c *EventController) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	photoID := r.PathValue("photoID")
	if !uuidRegex.MatchString(photoID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid photoID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Media.Delete(r.Context(), photoID, userID); err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": photoID})
}

// DeleteRSVPResponse godoc
// @Summary Delete an RSVP response
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Param responseID path string true "Response ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /rsvp-responses/{responseID} [delete]
func (c *EventController) DeleteRSVPResponse(w http.ResponseWriter, r *http.Request) {
	responseID := r.PathValue("responseID")
	if !uuidRegex.MatchString(responseID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid responseID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Contributions.DeleteResponse(r.Context(), responseID, userID); err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": responseID})
}

func (c *EventController) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return "", false
	}
	return eventID, true
}
