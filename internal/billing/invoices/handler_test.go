package invoices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	documentIDs []int64
	emailIDs    []int64
}

func (e *recordingEnqueuer) EnqueueDocument(_ context.Context, invoiceID int64) error {
	e.documentIDs = append(e.documentIDs, invoiceID)
	return nil
}

func (e *recordingEnqueuer) EnqueueEmail(_ context.Context, invoiceID int64, _ SendEmailRequest) error {
	e.emailIDs = append(e.emailIDs, invoiceID)
	return nil
}

func invoiceRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestDownloadQueuesRenderWhenDocumentMissing(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), seededRepo())
	created, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)
	require.Nil(t, created.DocumentRef)

	enq := &recordingEnqueuer{}
	handler := NewHandler(testLogger(), svc, validator.New(), enq)

	req := httptest.NewRequest(http.MethodGet, "/invoices/1/pdf", nil)
	rec := httptest.NewRecorder()
	invoiceRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []int64{created.ID}, enq.documentIDs)
	require.Contains(t, rec.Body.String(), "queued")
}

func TestDownloadWithoutWorkerReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), seededRepo())
	_, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)

	handler := NewHandler(testLogger(), svc, validator.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/invoices/1/pdf", nil)
	rec := httptest.NewRecorder()
	invoiceRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendEmailForwardsOverrides(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), seededRepo())
	created, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)
	require.NoError(t, svc.AttachDocument(ctx, created.ID, "/var/invoices/invoice.pdf"))

	enq := &recordingEnqueuer{}
	handler := NewHandler(testLogger(), svc, validator.New(), enq)

	req := httptest.NewRequest(http.MethodPost, "/invoices/1/send-email",
		strings.NewReader(`{"recipient":"billing@acme.si","subject":"March statement"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	invoiceRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []int64{created.ID}, enq.emailIDs)
}
