package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/middleware"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConnectionService struct {
	sendResult    *models.ConnectionRequest
	err           error
	respondResult *models.Connection
	status        models.RelationshipStatus
	connections   []models.ConnectionView
	pending       []models.PendingRequestView
	network       *models.NetworkView
	lastActor     string
	lastFrom      string
	lastTo        string
	lastUser      string
	lastDecision  models.Decision
	lastOther     string
}

func (s *stubConnectionService) SendConnectionRequest(_ context.Context, actor, from, to string) (*models.ConnectionRequest, error) {
	s.lastActor, s.lastFrom, s.lastTo = actor, from, to
	return s.sendResult, s.err
}

func (s *stubConnectionService) WithdrawConnectionRequest(_ context.Context, actor, from, to string) error {
	s.lastActor, s.lastFrom, s.lastTo = actor, from, to
	return s.err
}

func (s *stubConnectionService) RespondToConnectionRequest(_ context.Context, actor, from, to string, decision models.Decision) (*models.Connection, error) {
	s.lastActor, s.lastFrom, s.lastTo, s.lastDecision = actor, from, to, decision
	return s.respondResult, s.err
}

func (s *stubConnectionService) Disconnect(_ context.Context, actor, other string) error {
	s.lastActor, s.lastOther = actor, other
	return s.err
}

func (s *stubConnectionService) GetRelationship(_ context.Context, actor, other string) (models.RelationshipStatus, error) {
	s.lastActor, s.lastOther = actor, other
	return s.status, s.err
}

func (s *stubConnectionService) ListConnections(_ context.Context, actor, user string) ([]models.ConnectionView, error) {
	s.lastActor, s.lastUser = actor, user
	return s.connections, s.err
}

func (s *stubConnectionService) ListPendingRequestsReceived(_ context.Context, actor, user string) ([]models.PendingRequestView, error) {
	s.lastActor, s.lastUser = actor, user
	return s.pending, s.err
}

func (s *stubConnectionService) ListPendingRequestsSent(_ context.Context, actor, user string) ([]models.PendingRequestView, error) {
	s.lastActor, s.lastUser = actor, user
	return s.pending, s.err
}

func (s *stubConnectionService) GetNetworkView(_ context.Context, actor, user string) (*models.NetworkView, error) {
	s.lastActor, s.lastUser = actor, user
	return s.network, s.err
}

func newConnectionTestApp(service *stubConnectionService, actor string) *fiber.App {
	handler := NewConnectionHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalEmail, actor)
		c.Locals(middleware.LocalRole, "student")
		return c.Next()
	})
	app.Post("/api/connections/request", handler.SendRequest)
	app.Delete("/api/connections/unsend", handler.WithdrawRequest)
	app.Put("/api/connections/status", handler.RespondToRequest)
	app.Get("/api/connections/pending", handler.ListPending)
	app.Get("/api/connections/sent", handler.ListSent)
	app.Get("/api/connections/status/:email", handler.GetStatus)
	app.Delete("/api/connections/:email", handler.Disconnect)
	app.Get("/api/connections", handler.ListConnections)
	app.Get("/api/network", handler.GetNetwork)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func TestSendRequestReturnsCreated(t *testing.T) {
	service := &stubConnectionService{
		sendResult: &models.ConnectionRequest{FromEmail: "ana@uni.edu", ToEmail: "ben@uni.edu", CreatedAt: time.Now()},
	}
	app := newConnectionTestApp(service, "ana@uni.edu")

	resp, body := doJSON(t, app, http.MethodPost, "/api/connections/request", `{"fromEmail":"ana@uni.edu","toEmail":"ben@uni.edu"}`)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ana@uni.edu", service.lastActor)
	assert.Equal(t, "ben@uni.edu", service.lastTo)
	assert.Contains(t, body, "request")
}

func TestSendRequestValidatesBody(t *testing.T) {
	service := &stubConnectionService{}
	app := newConnectionTestApp(service, "ana@uni.edu")

	resp, body := doJSON(t, app, http.MethodPost, "/api/connections/request", `{"fromEmail":"ana@uni.edu","toEmail":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidInput", body["code"])
	assert.Empty(t, service.lastActor, "service must not be called")
}

func TestConnectionErrorsMapToContract(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already requested", apperr.ErrAlreadyRequested, http.StatusBadRequest, "AlreadyRequested"},
		{"already connected", apperr.ErrAlreadyConnected, http.StatusBadRequest, "AlreadyConnected"},
		{"unknown user", apperr.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
		{"wrong actor", apperr.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"self request", apperr.ErrSelfRequest, http.StatusBadRequest, "SelfRequest"},
		{"store down", apperr.Unavailable(context.DeadlineExceeded), http.StatusServiceUnavailable, "StoreUnavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newConnectionTestApp(&stubConnectionService{err: tc.err}, "ana@uni.edu")

			resp, body := doJSON(t, app, http.MethodPost, "/api/connections/request", `{"fromEmail":"ana@uni.edu","toEmail":"ben@uni.edu"}`)

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body["error"], "deadline", "driver details must not leak")
		})
	}
}

func TestStoreUnavailableSetsRetryAfter(t *testing.T) {
	app := newConnectionTestApp(&stubConnectionService{err: apperr.Unavailable(context.DeadlineExceeded)}, "ana@uni.edu")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/connections", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, retryAfterSeconds, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestWithdrawWithoutRequestIsBadRequest(t *testing.T) {
	app := newConnectionTestApp(&stubConnectionService{err: apperr.ErrNoSuchRequest}, "ana@uni.edu")

	resp, body := doJSON(t, app, http.MethodDelete, "/api/connections/unsend", `{"fromEmail":"ana@uni.edu","toEmail":"ben@uni.edu"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NoSuchRequest", body["code"])
}

func TestRespondPassesDecision(t *testing.T) {
	service := &stubConnectionService{
		respondResult: &models.Connection{UserEmail: "ana@uni.edu", OtherEmail: "ben@uni.edu"},
	}
	app := newConnectionTestApp(service, "ben@uni.edu")

	resp, body := doJSON(t, app, http.MethodPut, "/api/connections/status", `{"fromEmail":"ana@uni.edu","toEmail":"ben@uni.edu","status":"accepted"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.DecisionAccepted, service.lastDecision)
	assert.Equal(t, "ben@uni.edu", service.lastActor)
	assert.Equal(t, "accepted", body["status"])
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	service := &stubConnectionService{}
	app := newConnectionTestApp(service, "ben@uni.edu")

	resp, body := doJSON(t, app, http.MethodPut, "/api/connections/status", `{"fromEmail":"ana@uni.edu","toEmail":"ben@uni.edu","status":"maybe"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.Code(apperr.ErrInvalidInput), body["code"])
	assert.Contains(t, body["error"], "accepted declined")
	assert.Empty(t, service.lastActor, "service must not be called")
}

func TestDisconnectAndStatusUsePathEmail(t *testing.T) {
	service := &stubConnectionService{status: models.RelationshipMutualPending}
	app := newConnectionTestApp(service, "ana@uni.edu")

	resp, body := doJSON(t, app, http.MethodGet, "/api/connections/status/ben@uni.edu", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mutual_pending", body["status"])
	assert.Equal(t, "ben@uni.edu", service.lastOther)

	service.err = apperr.ErrNotConnected
	resp, body = doJSON(t, app, http.MethodDelete, "/api/connections/ben@uni.edu", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NotConnected", body["code"])
}

func TestListEndpointsWrapResults(t *testing.T) {
	service := &stubConnectionService{
		connections: []models.ConnectionView{{UserProjection: models.UserProjection{Email: "ben@uni.edu", Name: "Ben"}}},
		pending:     []models.PendingRequestView{{UserProjection: models.UserProjection{Email: "carla@uni.edu", Name: "Carla"}}},
		network:     &models.NetworkView{Recommended: []models.RecommendedUser{{UserProjection: models.UserProjection{Email: "dev@uni.edu"}}}},
	}
	app := newConnectionTestApp(service, "ana@uni.edu")

	_, body := doJSON(t, app, http.MethodGet, "/api/connections?email=ana@uni.edu", "")
	assert.Len(t, body["connections"], 1)
	assert.Equal(t, "ana@uni.edu", service.lastUser)

	_, body = doJSON(t, app, http.MethodGet, "/api/connections/pending?email=ana@uni.edu", "")
	assert.Len(t, body["pending"], 1)

	_, body = doJSON(t, app, http.MethodGet, "/api/connections/sent", "")
	assert.Len(t, body["sent"], 1)

	_, body = doJSON(t, app, http.MethodGet, "/api/network", "")
	assert.Len(t, body["recommended"], 1)
}
