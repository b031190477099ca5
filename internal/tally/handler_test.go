package tally

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/auth"
	"github.com/best-shot/backend/internal/middleware"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/internal/store/storetest"
)

func TestHandlerServesSnapshots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := storetest.NewSQLite(t)
	storetest.SeedPhotos(t, st, 10, "http://img")
	kim := storetest.SeedParticipant(t, st, "Kim 님", "KIM001")

	hub := realtime.NewHub(zap.NewNop())
	agg := NewAggregator(st, realtime.NewLocalFeed(), hub, nil, 0, zap.NewNop())
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	jwtSvc := auth.NewJWTService("secret", 1)
	h := NewHandler(agg, hub, zap.NewNop())
	r := gin.New()
	h.Register(r)
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdmin(jwtSvc))
	h.RegisterAdmin(admin)
	srv := httptest.NewServer(r)
	defer srv.Close()

	require.NoError(t, st.SubmitSelections(context.Background(), kim.ID, storetest.PhotoIDs(1, 10), time.Now()))

	resp, err := http.Post(srv.URL+"/tally/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "refresh is admin-only")

	resp, err = http.Post(srv.URL+"/admin/tally/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := jwtSvc.Generate()
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/admin/tally/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool { return agg.Snapshot().Count(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(srv.URL + "/tally")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Success bool                 `json:"success"`
		Data    models.TallySnapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"Kim"}, body.Data.VotersFor(4))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tally"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventTally, msg.Event)
	var snap models.TallySnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, 1, snap.Count(10))
}
