package pushnotification

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/pushsubscription"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
	}
}

type vapidPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type subscriptionRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

// Routes mounts the push subscription endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/push/vapid-public-key", s.getVapidPublicKey)
	r.Post("/push/subscriptions", s.registerSubscription)
	r.Delete("/push/subscriptions", s.unregisterSubscription)
	r.Post("/push/test", s.sendTestNotification)
}

func (s *Server) getVapidPublicKey(_ http.ResponseWriter, r *http.Request) {
	if !s.vapidEnv.Configured() {
		cerr.SetNewJSONError(r.Context(), cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(r.Context(), &vapidPublicKeyResponse{PublicKey: s.vapidEnv.VAPIDPublicKey})
}

func (s *Server) registerSubscription(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "malformed request body", err)
		return
	}
	e := cerr.NewError(cerr.InvalidArgument, "invalid push subscription", nil)
	if req.Endpoint == "" {
		_ = e.AddDetailMessageWithCode("endpoint is required", "endpoint.required")
	}
	if req.P256dhKey == "" {
		_ = e.AddDetailMessageWithCode("p256dh_key is required", "p256dh_key.required")
	}
	if req.AuthKey == "" {
		_ = e.AddDetailMessageWithCode("auth_key is required", "auth_key.required")
	}
	if len(e.Details) > 0 {
		cerr.SetJSONError(ctx, e)
		return
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, sub)
}

func (s *Server) unregisterSubscription(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "malformed request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	if err := s.repo.DeleteByEndpoint(ctx, req.Endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
	}
}

func (s *Server) sendTestNotification(_ http.ResponseWriter, r *http.Request) {
	s.sender.SendToAll(r.Context(), &NotificationPayload{
		Title: "taskboard test",
		Body:  "Push notifications are working!",
	})
}
