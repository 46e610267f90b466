package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"weddingmemories/internal/delivery/http/controllers"
	"weddingmemories/internal/delivery/http/middleware"
	"weddingmemories/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	eventController *controllers.EventController,
	guestController *controllers.GuestController,
	feedController *controllers.FeedController,
	verifier domain.TokenVerifier,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Owner routes
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /my/events", auth(eventController.ListMyEvents))
	mux.HandleFunc("PATCH /events/{eventID}", auth(eventController.PatchEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.DeleteEvent))
	mux.HandleFunc("PATCH /events/{eventID}/rsvp-settings", auth(eventController.UpdateRSVPSettings))
	mux.HandleFunc("GET /events/{eventID}/rsvp-responses", auth(eventController.ListRSVPResponses))
	mux.HandleFunc("DELETE /wishes/{wishID}", auth(eventController.DeleteWish))
	mux.HandleFunc("DELETE /photos/{photoID}", auth(eventController.DeletePhoto))
	mux.HandleFunc("DELETE /rsvp-responses/{responseID}", auth(eventController.DeleteRSVPResponse))

	// Guest routes
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("POST /events/{eventID}/wishes", guestController.SubmitWish)
	mux.HandleFunc("GET /events/{eventID}/wishes", guestController.ListWishes)
	mux.HandleFunc("POST /events/{eventID}/photos", guestController.UploadPhotos)
	mux.HandleFunc("GET /events/{eventID}/photos", guestController.ListPhotos)
	mux.HandleFunc("POST /events/{eventID}/rsvp", guestController.SubmitRSVP)
	mux.HandleFunc("GET /events/{eventID}/rsvp-settings", guestController.GetRSVPSettings)
	mux.HandleFunc("GET /events/{eventID}/stats", guestController.GetStats)
	mux.HandleFunc("GET /events/{eventID}/feed", feedController.Stream)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
