package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	alertmodels "gatehouse/internal/alert/models"
	"gatehouse/internal/emergency"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/testutil"
)

type serviceStub struct {
	state       *emergency.State
	alert       *alertmodels.Alert
	err         error
	gotLocation string
	gotSeverity alertmodels.Severity
}

func (s *serviceStub) Activate(ctx context.Context, siteID id.SiteID, typ, message, location string) (*emergency.State, error) {
	s.gotLocation = location
	return s.state, s.err
}

func (s *serviceStub) Deactivate(ctx context.Context, siteID id.SiteID) error {
	return s.err
}

func (s *serviceStub) Status(ctx context.Context, siteID id.SiteID) *emergency.State {
	return s.state
}

func (s *serviceStub) ReportIncident(ctx context.Context, siteID id.SiteID, typ, message string, severity alertmodels.Severity) (*alertmodels.Alert, error) {
	s.gotSeverity = severity
	return s.alert, s.err
}

func newRouter(stub *serviceStub) http.Handler {
	r := chi.NewRouter()
	New(stub, slog.Default()).Register(r)
	return r
}

func TestHandleActivatePassesLocation(t *testing.T) {
	siteID := id.SiteID(uuid.New())
	stub := &serviceStub{state: &emergency.State{SiteID: siteID, Type: "fire"}}
	router := newRouter(stub)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/emergency/activate", map[string]string{
		"site_id":  siteID.String(),
		"type":     "fire",
		"message":  "evacuate now",
		"location": "loading dock",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, "loading dock", stub.gotLocation)
}

func TestHandleReportIncident(t *testing.T) {
	siteID := id.SiteID(uuid.New())
	stub := &serviceStub{alert: &alertmodels.Alert{ID: id.NewAlertID(), Severity: alertmodels.SeverityWarning}}
	router := newRouter(stub)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/incidents", map[string]string{
		"site_id":  siteID.String(),
		"type":     "tailgating",
		"message":  "unbadged person at gate 3",
		"severity": "warning",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, alertmodels.SeverityWarning, stub.gotSeverity)
}

func TestHandleReportIncidentBadSite(t *testing.T) {
	router := newRouter(&serviceStub{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/incidents", map[string]string{
		"site_id": "not-a-uuid",
		"type":    "theft",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(t, rr, string(dErrors.CodeValidation))
}

func TestHandleReportIncidentServiceError(t *testing.T) {
	stub := &serviceStub{err: dErrors.New(dErrors.CodeValidation, "invalid incident severity")}
	router := newRouter(stub)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/incidents", map[string]string{
		"site_id":  id.SiteID(uuid.New()).String(),
		"type":     "theft",
		"severity": "loud",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
}
