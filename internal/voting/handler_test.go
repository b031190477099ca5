package voting

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	NewHandler(f.svc, zap.NewNop()).Register(r)
	return r, f
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func decodeView(t *testing.T, env envelope) View {
	t.Helper()
	var v View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHandlerVoteFlow(t *testing.T) {
	r, _ := newRouter(t)

	code, env := do(t, r, http.MethodGet, "/vote/ABC123", nil)
	require.Equal(t, http.StatusOK, code)
	v := decodeView(t, env)
	assert.Equal(t, 0, v.Count)
	assert.Equal(t, StateNotStarted, v.State)

	for id := int64(1); id <= 10; id++ {
		code, env = do(t, r, http.MethodPost, "/vote/ABC123/toggle", ToggleRequest{PhotoID: id})
		require.Equal(t, http.StatusOK, code, env.Error)
	}
	v = decodeView(t, env)
	assert.Equal(t, StateReady, v.State)

	code, env = do(t, r, http.MethodPost, "/vote/ABC123/submit", SubmitBody{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, env = do(t, r, http.MethodPost, "/vote/ABC123/submit", SubmitBody{Confirm: true})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = do(t, r, http.MethodGet, "/vote/ABC123", nil)
	require.Equal(t, http.StatusOK, code)
	v = decodeView(t, env)
	assert.Equal(t, StateCompleted, v.State)
	assert.Len(t, v.Photos, 10)

	code, _ = do(t, r, http.MethodPost, "/vote/ABC123/submit", SubmitBody{Confirm: true})
	assert.Equal(t, http.StatusConflict, code)

	code, env = do(t, r, http.MethodGet, "/vote/ABC123/selections", nil)
	require.Equal(t, http.StatusOK, code)
	var photos []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &photos))
	assert.Len(t, photos, 10)
}

func TestHandlerErrors(t *testing.T) {
	r, _ := newRouter(t)

	code, env := do(t, r, http.MethodGet, "/vote/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "participant not found", env.Error)

	code, _ = do(t, r, http.MethodPost, "/vote/ABC123/toggle", map[string]string{"photo_id": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/vote/ABC123/toggle", ToggleRequest{PhotoID: 500})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/vote/ABC123/photos/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/vote/ABC123/photos/3", nil)
	assert.Equal(t, http.StatusOK, code)
}
