package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/pkg/queue"
)

type fakeQueue struct{ payloads []queue.ExportPayload }

func (q *fakeQueue) EnqueueExport(_ context.Context, p queue.ExportPayload) error {
	q.payloads = append(q.payloads, p)
	return nil
}

type fakePresigner struct{}

func (fakePresigner) PresignDownload(_ context.Context, key, filename string) (string, error) {
	return "https://signed.example.com/" + key + "?name=" + filename, nil
}

func exportRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r.Group("/admin"))
	return r
}

func call(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestExportStreamsAttachment(t *testing.T) {
	srv := imageServer(t, nil, nil)
	h := NewHandler(seededService(t, srv.URL), nil, nil, nil, "BestShot_Result.pdf", zap.NewNop())
	r := exportRouter(h)

	w := call(r, http.MethodPost, "/admin/export")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="BestShot_Result.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "5", w.Header().Get("X-Missing-Images"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = call(r, http.MethodGet, "/admin/ranking")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.RankedPhoto `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 12)
	assert.Equal(t, int64(3), body.Data[0].ID)
}

func TestAsyncExportLifecycle(t *testing.T) {
	jobs := NewMemoryJobStore()
	q := &fakeQueue{}
	h := NewHandler(nil, jobs, q, fakePresigner{}, "BestShot_Result.pdf", zap.NewNop())
	r := exportRouter(h)

	w := call(r, http.MethodPost, "/admin/exports")
	require.Equal(t, http.StatusAccepted, w.Code)
	var created struct {
		Data models.ExportJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.ExportQueued, created.Data.Status)
	require.Len(t, q.payloads, 1)
	assert.Equal(t, created.Data.ID, q.payloads[0].JobID)

	job, err := jobs.Get(context.Background(), created.Data.ID)
	require.NoError(t, err)
	job.Status = models.ExportDone
	job.S3Key = "exports/" + job.ID.String() + "/BestShot_Result.pdf"
	require.NoError(t, jobs.Save(context.Background(), job))

	w = call(r, http.MethodGet, "/admin/exports/"+job.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Data JobView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got.Data.DownloadURL, job.S3Key)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/admin/exports/"+uuid.New().String()).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/admin/exports/nope").Code)
}

func TestAsyncExportUnavailableWithoutQueue(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "x.pdf", zap.NewNop())
	w := call(exportRouter(h), http.MethodPost, "/admin/exports")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
