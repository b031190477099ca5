package photos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/models"
)

type staticCatalog struct {
	photos []models.Photo
	err    error
}

func (s staticCatalog) ListPhotos(context.Context) ([]models.Photo, error) { return s.photos, s.err }

type staticTally struct{ snap *models.TallySnapshot }

func (s staticTally) Snapshot() *models.TallySnapshot { return s.snap }

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListIncludesVoters(t *testing.T) {
	catalog := staticCatalog{photos: []models.Photo{{ID: 1, URL: "a"}, {ID: 2, URL: "b"}}}
	tally := staticTally{snap: &models.TallySnapshot{Voters: map[int64][]string{2: {"Kim", "Lee"}}}}
	w := serve(t, NewHandler(catalog, tally, zap.NewNop()), "/photos")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, 0, body.Data[0].VoteCount)
	assert.Equal(t, []string{"Kim", "Lee"}, body.Data[1].Voters)
}

func TestGetPhoto(t *testing.T) {
	h := NewHandler(staticCatalog{photos: []models.Photo{{ID: 7, URL: "x"}}}, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, serve(t, h, "/photos/7").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "/photos/8").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, "/photos/x").Code)
}

func TestListFetchError(t *testing.T) {
	h := NewHandler(staticCatalog{err: errors.New("db down")}, nil, zap.NewNop())
	w := serve(t, h, "/photos")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load photos")
}
