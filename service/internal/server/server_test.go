package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/acesup/service/internal/auth"
	"github.com/jason-s-yu/acesup/service/internal/cache"
	"github.com/jason-s-yu/acesup/service/internal/database"
	"github.com/jason-s-yu/acesup/service/internal/game"
)

type fakeResults struct {
	mu      sync.Mutex
	saved   []database.GameResult
	variant string
	limit   int
}

func (f *fakeResults) SaveResult(_ context.Context, res database.GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, res)
	return nil
}

func (f *fakeResults) RecentResults(_ context.Context, variant string, limit int) ([]database.GameResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variant, f.limit = variant, limit
	return []database.GameResult{{ID: uuid.New(), Variant: game.VariantAcesUp, Outcome: "won", Discarded: 48}}, nil
}

type fakeHistory struct {
	mu  sync.Mutex
	err error
}

func (f *fakeHistory) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeHistory) History(_ context.Context, tableID uuid.UUID, _ int) ([]cache.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []cache.ActionRecord{{TableID: tableID, ActionIndex: 1, ActionType: "new_game"}}, nil
}

type fixture struct {
	ts      *httptest.Server
	reg     *Registry
	tokens  *auth.Issuer
	results *fakeResults
	history *fakeHistory
}

func setupServer(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{results: &fakeResults{}, history: &fakeHistory{}}
	f.reg = NewRegistry(RegistryOptions{
		Factories:   Factories(game.AcesUpOptions{Seed: 3}, game.StripJackOptions{Seed: 5}),
		Results:     f.results,
		IdleTimeout: time.Minute,
		MaxTables:   4,
	})
	var err error
	f.tokens, err = auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	o := Options{Tables: f.reg, Tokens: f.tokens, Results: f.results, History: f.history}
	for _, fn := range opts {
		fn(&o)
	}
	f.ts = httptest.NewServer(New(o).Handler())
	t.Cleanup(func() {
		f.reg.Close()
		f.ts.Close()
	})
	return f
}

func (f *fixture) createTable(t *testing.T, variant string) createTableResponse {
	t.Helper()
	body, _ := json.Marshal(createTableRequest{Variant: variant})
	resp, err := http.Post(f.ts.URL+"/api/tables", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out createTableResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) dial(t *testing.T, id uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/tables/" + id.String() + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

type wireEvent struct {
	Type    string                 `json:"type"`
	TableID uuid.UUID              `json:"tableId"`
	Target  string                 `json:"target"`
	Payload map[string]interface{} `json:"payload"`
	State   json.RawMessage        `json:"state"`
}

// readUntil reads events until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(ev wireEvent) bool) wireEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		var ev wireEvent
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		if match(ev) {
			return ev
		}
	}
}

func stockCount(t *testing.T, ev wireEvent) int {
	t.Helper()
	var st struct {
		StockCount int `json:"stockCount"`
	}
	require.NoError(t, json.Unmarshal(ev.State, &st))
	return st.StockCount
}

func isType(typ game.GameEventType) func(wireEvent) bool {
	return func(ev wireEvent) bool { return ev.Type == string(typ) }
}

func TestHealthz(t *testing.T) {
	f := setupServer(t)
	resp, err := http.Get(f.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["tables"])
}

func TestCreateTable(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, "")
	assert.Equal(t, game.VariantAcesUp, out.Variant)
	assert.NotEqual(t, uuid.Nil, out.ID)

	claims, err := f.tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.ID, claims.TableID)
	assert.Equal(t, 1, f.reg.Len())

	sj := f.createTable(t, game.VariantStripJack)
	assert.Equal(t, game.VariantStripJack, sj.Variant)
	assert.Equal(t, 2, f.reg.Len())
}

func TestCreateTableRejectsUnknownVariant(t *testing.T) {
	f := setupServer(t)
	resp, err := http.Post(f.ts.URL+"/api/tables", "application/json", strings.NewReader(`{"variant":"klondike"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, f.reg.Len())
}

func TestCreateTableLimit(t *testing.T) {
	f := setupServer(t)
	for i := 0; i < 4; i++ {
		f.createTable(t, game.VariantAcesUp)
	}
	resp, err := http.Post(f.ts.URL+"/api/tables", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStreamDealsAndSyncs(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantAcesUp)
	conn := f.dial(t, out.ID, out.Token)

	first := readUntil(t, conn, isType(game.EventTableState))
	assert.Equal(t, out.ID, first.TableID)
	assert.Equal(t, 48, stockCount(t, first))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, game.Command{Type: game.CmdDeal}))

	next := readUntil(t, conn, isType(game.EventTableState))
	assert.Equal(t, 44, stockCount(t, next))
}

func TestStreamReportsRejectedCommand(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantAcesUp)
	conn := f.dial(t, out.ID, out.Token)
	readUntil(t, conn, isType(game.EventTableState))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, game.Command{Type: "shuffle"}))

	ev := readUntil(t, conn, isType(game.EventError))
	assert.Equal(t, "shuffle", ev.Payload["command"])
	assert.Contains(t, ev.Payload["error"], "unknown command")
}

func TestStreamFansOutToViewers(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantStripJack)
	a := f.dial(t, out.ID, out.Token)
	readUntil(t, a, isType(game.EventTableState))
	b := f.dial(t, out.ID, out.Token)
	readUntil(t, b, isType(game.EventTableState))

	h, ok := f.reg.Get(out.ID)
	require.True(t, ok)
	assert.Eventually(t, func() bool { return h.Viewers() == 2 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, a, game.Command{Type: game.CmdStartGame}))

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readUntil(t, conn, func(ev wireEvent) bool {
			if ev.Type != string(game.EventTableState) {
				return false
			}
			var st struct {
				Status string `json:"status"`
			}
			return json.Unmarshal(ev.State, &st) == nil && st.Status == "in_progress"
		})
		assert.Equal(t, out.ID, ev.TableID)
	}
}

func TestStreamAuth(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantAcesUp)
	other := uuid.New()
	otherTok, err := f.tokens.Issue(other, game.VariantAcesUp)
	require.NoError(t, err)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing token", "/api/tables/" + out.ID.String() + "/ws", http.StatusUnauthorized},
		{"bad id", "/api/tables/nope/ws?token=" + out.Token, http.StatusBadRequest},
		{"other table", "/api/tables/" + out.ID.String() + "/ws?token=" + otherTok, http.StatusForbidden},
		{"unknown table", "/api/tables/" + other.String() + "/ws?token=" + otherTok, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(f.ts.URL + tc.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestDeleteTable(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantAcesUp)
	conn := f.dial(t, out.ID, out.Token)
	readUntil(t, conn, isType(game.EventTableState))

	req, err := http.NewRequest(http.MethodDelete, f.ts.URL+"/api/tables/"+out.ID.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, f.reg.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var ev wireEvent
		err := wsjson.Read(ctx, conn, &ev)
		if err != nil {
			assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
			break
		}
	}
}

func TestResults(t *testing.T) {
	f := setupServer(t)
	resp, err := http.Get(f.ts.URL + "/api/results?variant=acesup&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []database.GameResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, 48, body.Results[0].Discarded)
	f.results.mu.Lock()
	assert.Equal(t, "acesup", f.results.variant)
	assert.Equal(t, 5, f.results.limit)
	f.results.mu.Unlock()

	for _, q := range []string{"?limit=x", "?limit=-1", "?variant=klondike"} {
		resp, err := http.Get(f.ts.URL + "/api/results" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestResultsWithoutVariant(t *testing.T) {
	f := setupServer(t)
	resp, err := http.Get(f.ts.URL + "/api/results")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.results.mu.Lock()
	assert.Equal(t, "", f.results.variant)
	assert.Equal(t, 0, f.results.limit)
	f.results.mu.Unlock()
}

func TestResultsListsEveryVariant(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(ctx, "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	now := time.Now().UTC()
	require.NoError(t, store.SaveResult(ctx, database.GameResult{
		ID: uuid.New(), TableID: uuid.New(), Variant: game.VariantAcesUp, Outcome: "lost", StartedAt: now, EndedAt: now,
	}))
	require.NoError(t, store.SaveResult(ctx, database.GameResult{
		ID: uuid.New(), TableID: uuid.New(), Variant: game.VariantStripJack, Outcome: "finished", StartedAt: now, EndedAt: now,
	}))

	f := setupServer(t, func(o *Options) { o.Results = store })
	resp, err := http.Get(f.ts.URL + "/api/results?variant=")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []database.GameResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Results, 2)
}

func TestResultsDisabled(t *testing.T) {
	f := setupServer(t, func(o *Options) { o.Results = nil; o.History = nil })
	resp, err := http.Get(f.ts.URL + "/api/results")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	out := f.createTable(t, game.VariantAcesUp)
	resp, err = http.Get(f.ts.URL + "/api/tables/" + out.ID.String() + "/history?token=" + out.Token)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	f := setupServer(t)
	out := f.createTable(t, game.VariantAcesUp)
	resp, err := http.Get(f.ts.URL + "/api/tables/" + out.ID.String() + "/history?token=" + out.Token)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Actions []cache.ActionRecord `json:"actions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Actions, 1)
	assert.Equal(t, out.ID, body.Actions[0].TableID)

	f.history.fail(errors.New("redis down"))
	resp2, err := http.Get(f.ts.URL + "/api/tables/" + out.ID.String() + "/history?token=" + out.Token)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp2.StatusCode)
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "abc", bearer("Bearer abc"))
	assert.Equal(t, "abc", bearer("bearer abc"))
	assert.Empty(t, bearer("Basic abc"))
	assert.Empty(t, bearer(""))
}
