package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"weddingmemories/internal/delivery/http/helpers"
	"weddingmemories/internal/domain"
)

// maxUploadBytes caps a whole multipart photo batch. Individual files are
// still validated against the configured per-file limit inside the pipeline.
const maxUploadBytes = 128 << 20

type GuestController struct {
	Logger        *slog.Logger
	Contributions domain.ContributionService
	Media         domain.MediaService
}

func NewGuestController(logger *slog.Logger, contributions domain.ContributionService, media domain.MediaService) *GuestController {
	return &GuestController{
		Logger:        logger,
		Contributions: contributions,
		Media:         media,
	}
}

// SubmitWishRequest is the request body for POST /events/{eventID}/wishes.
type SubmitWishRequest struct {
	GuestName string `json:"guest_name"`
	Message   string `json:"message"`
}

// Validate implements helpers.Validator.
func (r *SubmitWishRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.GuestName) == "" {
		errs = append(errs, "guest_name is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		errs = append(errs, "message is required")
	}
	return errs
}

// SubmitRSVPRequest is the request body for POST /events/{eventID}/rsvp.
type SubmitRSVPRequest struct {
	GuestName   string  `json:"guest_name"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Status      string  `json:"status"`
	GuestCount  int     `json:"guest_count"`
	Message     *string `json:"message,omitempty"`
}

// Validate implements helpers.Validator.
func (r *SubmitRSVPRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.GuestName) == "" {
		errs = append(errs, "guest_name is required")
	}
	if !domain.ValidRSVPStatus(r.Status) {
		errs = append(errs, "status must be one of: attending, not_attending, maybe")
	}
	return errs
}

// fileFailure is the wire shape of one rejected file in a photo batch.
type fileFailure struct {
	FileName string `json:"file_name"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
}

// uploadResponse is the wire shape of a photo batch outcome.
type uploadResponse struct {
	Photos   []*domain.Photo `json:"photos"`
	Failures []fileFailure   `json:"failures"`
}

// SubmitWish godoc
// @Summary Submit a wish
// @Description Records a guest's wish for an active event. Rate limited per guest.
// @Tags wishes
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.SubmitWishRequest true "Wish fields"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: event_inactive"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Router /events/{eventID}/wishes [post]
func (c *GuestController) SubmitWish(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	var req SubmitWishRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	wish, err := c.Contributions.SubmitWish(r.Context(), &domain.WishSubmission{
		EventID:     eventID,
		Fingerprint: guestFingerprint(r),
		GuestName:   req.GuestName,
		Message:     req.Message,
	})
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, wish)
}

// ListWishes godoc
// @Summary List an event's wishes
// @Tags wishes
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/wishes [get]
func (c *GuestController) ListWishes(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	wishes, err := c.Contributions.ListWishes(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, wishes)
}

// SubmitRSVP godoc
// @Summary Submit an RSVP response
// @Description Records a guest's RSVP when RSVPs are enabled and the deadline has not passed.
// @Tags rsvp
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.SubmitRSVPRequest true "RSVP fields"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: rsvp_closed or deadline_passed"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Router /events/{eventID}/rsvp [post]
func (c *GuestController) SubmitRSVP(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	var req SubmitRSVPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	response, err := c.Contributions.SubmitRSVP(r.Context(), &domain.RSVPSubmission{
		EventID:     eventID,
		Fingerprint: guestFingerprint(r),
		GuestName:   req.GuestName,
		PhoneNumber: req.PhoneNumber,
		Status:      req.Status,
		GuestCount:  req.GuestCount,
		Message:     req.Message,
	})
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, response)
}

// GetRSVPSettings godoc
// @Summary Get an event's RSVP settings
// @Tags rsvp
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/rsvp-settings [get]
func (c *GuestController) GetRSVPSettings(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	settings, err := c.Contributions.GetSettings(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, settings)
}

// GetStats godoc
// @Summary Get an event's live counters
// @Tags stats
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/stats [get]
func (c *GuestController) GetStats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	stats, err := c.Contributions.Stats(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListPhotos godoc
// @Summary List an event's photos
// @Tags photos
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/photos [get]
func (c *GuestController) ListPhotos(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	photos, err := c.Media.ListByEventID(r.Context(), eventID)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, photos)
}

// UploadPhotos godoc
// @Summary Upload a batch of photos
// @Description Accepts multipart form data with one or more "photos" parts plus a "guest_name" field. Each file passes through validation, compression, upload, and recording independently; one bad file never fails the batch. The response lists created photos and per-file failures.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param guest_name formData string true "Guest display name"
// @Param photos formData file true "Image files (JPEG, PNG, or WebP)"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: event_inactive"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Router /events/{eventID}/photos [post]
func (c *GuestController) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	guestName := r.FormValue("guest_name")
	var caption *string
	if v := strings.TrimSpace(r.FormValue("caption")); v != "" {
		caption = &v
	}

	parts := r.MultipartForm.File["photos"]
	files := make([]domain.IncomingFile, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unreadable file part")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unreadable file part")
			return
		}
		files = append(files, domain.IncomingFile{
			FileName:    part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
			Caption:     caption,
		})
	}

	result, err := c.Media.Ingest(r.Context(), eventID, guestFingerprint(r), guestName, files, nil)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, toUploadResponse(result))
}

func toUploadResponse(result *domain.IngestResult) uploadResponse {
	resp := uploadResponse{
		Photos:   result.Photos,
		Failures: make([]fileFailure, 0, len(result.Failures)),
	}
	for _, fe := range result.Failures {
		reason := "upload failed"
		if fe.Err != nil {
			reason = fe.Err.Error()
		}
		resp.Failures = append(resp.Failures, fileFailure{
			FileName: fe.FileName,
			Stage:    fe.Stage,
			Reason:   reason,
		})
	}
	return resp
}

func (c *GuestController) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return "", false
	}
	return eventID, true
}
