package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
	"gatehouse/pkg/testutil"
)

type serviceStub struct {
	alert   *models.Alert
	err     error
	gotUser id.UserID
	gotNote string
}

func (s *serviceStub) List(ctx context.Context, f models.Filter, unresolvedOnly bool) ([]*models.Alert, error) {
	return []*models.Alert{s.alert}, s.err
}

func (s *serviceStub) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	return s.alert, s.err
}

func (s *serviceStub) MarkRead(ctx context.Context, alertID id.AlertID, user id.UserID) (*models.Alert, error) {
	s.gotUser = user
	return s.alert, s.err
}

func (s *serviceStub) Acknowledge(ctx context.Context, alertID id.AlertID, user id.UserID, note string) (*models.Alert, error) {
	s.gotUser = user
	s.gotNote = note
	return s.alert, s.err
}

func (s *serviceStub) Dismiss(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	return s.alert, s.err
}

// actorMiddleware injects a fixed actor the way the real middleware does.
func actorMiddleware(user id.UserID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithActor(r.Context(), user, "security")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRouter(stub *serviceStub, actor id.UserID) http.Handler {
	r := chi.NewRouter()
	r.Use(actorMiddleware(actor))
	New(stub, slog.Default()).Register(r)
	return r
}

func TestHandleReadUsesActor(t *testing.T) {
	actor := id.UserID(uuid.New())
	stub := &serviceStub{alert: &models.Alert{ID: id.NewAlertID(), Status: models.StatusRead}}
	router := newRouter(stub, actor)

	req := testutil.NewJSONRequest(t, http.MethodPut,
		"/alerts/"+stub.alert.ID.String()+"/read", nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, actor, stub.gotUser)
}

func TestHandleAcknowledgeWithNote(t *testing.T) {
	actor := id.UserID(uuid.New())
	stub := &serviceStub{alert: &models.Alert{ID: id.NewAlertID(), Status: models.StatusAcknowledged}}
	router := newRouter(stub, actor)

	req := testutil.NewJSONRequest(t, http.MethodPut,
		"/alerts/"+stub.alert.ID.String()+"/acknowledge",
		map[string]string{"note": "security dispatched"})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "security dispatched", stub.gotNote)
}

func TestHandleDismissNotFound(t *testing.T) {
	stub := &serviceStub{err: dErrors.New(dErrors.CodeNotFound, "alert not found")}
	router := newRouter(stub, id.UserID(uuid.New()))

	req := testutil.NewJSONRequest(t, http.MethodPut,
		"/alerts/"+id.NewAlertID().String()+"/dismiss", nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusNotFound)
	testutil.AssertErrorCode(t, rr, string(dErrors.CodeNotFound))
}

func TestHandleListBadSeverity(t *testing.T) {
	router := newRouter(&serviceStub{alert: &models.Alert{}}, id.UserID(uuid.New()))

	req := testutil.NewJSONRequest(t, http.MethodGet, "/alerts?severity=loud", nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
}
