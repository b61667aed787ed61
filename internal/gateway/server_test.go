package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/hooks"
	"github.com/wanjiru/triagedesk/internal/hub"
	"github.com/wanjiru/triagedesk/internal/logging"
	"github.com/wanjiru/triagedesk/internal/presence"
	"github.com/wanjiru/triagedesk/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *httptest.Server) {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	hookMgr := hooks.NewManager(log)
	h := hub.New(st, presence.NewRegistry(), hookMgr, log)

	s := New(config.Defaults(), st, h, hookMgr, log)
	s.startedAt = time.Now()

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	ts := httptest.NewServer(withMiddleware(mux, s.log, []string{"http://allowed.test"}))
	t.Cleanup(ts.Close)
	return s, st, ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)

	var h healthResponse
	code := getJSON(t, ts, "/health", &h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 0, h.AgentsOnline)
}

func TestUnknownRoute(t *testing.T) {
	_, _, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/nope", nil))
}

func TestCustomerAPI(t *testing.T) {
	_, _, ts := newTestServer(t)

	var cust domain.Customer
	code := doJSON(t, ts, http.MethodPost, "/api/customers",
		map[string]any{"userId": 42, "name": "Jane"}, &cust)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Jane", cust.Name)

	// Same userId again is idempotent, not a new row.
	code = doJSON(t, ts, http.MethodPost, "/api/customers",
		map[string]any{"userId": 42}, nil)
	assert.Equal(t, http.StatusOK, code)

	var got domain.Customer
	code = getJSON(t, ts, fmt.Sprintf("/api/customers/%d", cust.ID), &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, cust.ID, got.ID)

	code = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("/api/customers/%d", cust.ID),
		map[string]any{"phone": "+254700000001"}, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+254700000001", got.Phone)
	assert.Equal(t, "Jane", got.Name)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/customers/999", nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, ts, http.MethodPost, "/api/customers",
		map[string]any{"name": "no user id"}, nil))
}

func TestAgentAPI(t *testing.T) {
	_, _, ts := newTestServer(t)

	var agent domain.Agent
	code := doJSON(t, ts, http.MethodPost, "/api/agents",
		map[string]any{"name": "Amina", "email": "amina@triagedesk.test"}, &agent)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.AgentAvailable, agent.Status)

	code = doJSON(t, ts, http.MethodPost, "/api/agents",
		map[string]any{"name": "Dup", "email": "amina@triagedesk.test"}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("/api/agents/%d/status", agent.ID),
		map[string]any{"status": "BUSY"}, &agent)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.AgentBusy, agent.Status)

	code = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("/api/agents/%d/status", agent.ID),
		map[string]any{"status": "NAPPING"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var stats store.AgentStats
	code = getJSON(t, ts, "/api/agents/stats", &stats)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Busy)
}

func TestCannedResponseAPI(t *testing.T) {
	_, _, ts := newTestServer(t)

	var cr domain.CannedResponse
	code := doJSON(t, ts, http.MethodPost, "/api/canned-responses",
		map[string]any{"title": "Greeting", "content": "Hello!", "category": "general"}, &cr)
	assert.Equal(t, http.StatusCreated, code)

	code = doJSON(t, ts, http.MethodPut, fmt.Sprintf("/api/canned-responses/%d", cr.ID),
		map[string]any{"title": "Greeting", "content": "Hi there!", "category": "general"}, &cr)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hi there!", cr.Content)

	var list []domain.CannedResponse
	code = getJSON(t, ts, "/api/canned-responses?category=general", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 1)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+fmt.Sprintf("/api/canned-responses/%d", cr.ID), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, fmt.Sprintf("/api/canned-responses/%d", cr.ID), nil))
}

func TestConversationAndMessageAPI(t *testing.T) {
	_, st, ts := newTestServer(t)
	ctx := t.Context()

	cust, err := st.FindOrCreateCustomer(ctx, 1)
	require.NoError(t, err)
	conv, _, err := st.FindOrCreateOpenConversation(ctx, cust.ID, time.Now())
	require.NoError(t, err)
	msg, _, err := st.AppendMessage(ctx, store.AppendMessageInput{
		ConversationID: conv.ID,
		CustomerID:     cust.ID,
		Content:        "my account was hacked",
		Direction:      domain.DirectionInbound,
	})
	require.NoError(t, err)

	var list []store.ConversationSummary
	code := getJSON(t, ts, "/api/conversations", &list)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, domain.UrgencyCritical, list[0].HighestUrgency)

	var msgs []domain.Message
	code = getJSON(t, ts, fmt.Sprintf("/api/conversations/%d/messages", conv.ID), &msgs)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)

	var filtered []domain.Message
	code = getJSON(t, ts, "/api/messages?urgency=CRITICAL", &filtered)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, filtered, 1)

	var empty []domain.Message
	code = getJSON(t, ts, "/api/messages?urgency=LOW", &empty)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, empty)

	var res store.SearchResults
	code = getJSON(t, ts, "/api/search?q=hacked", &res)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Messages, 1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/search", nil))

	var stats store.DashboardStats
	code = getJSON(t, ts, "/api/stats", &stats)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, stats.Conversations)
	assert.Equal(t, 1, stats.UnreadMessages)
}

func TestCORS(t *testing.T) {
	_, _, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/stats", nil)
	req.Header.Set("Origin", "http://allowed.test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://allowed.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

// --- WebSocket integration ---

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil skips frames until the wanted event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) Frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		f := readFrame(t, conn)
		if f.Event == event {
			return f
		}
	}
	t.Fatalf("never received %s", event)
	return Frame{}
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	msg, err := EncodeFrame(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
}

func TestWebSocket_GreetingAndJoin(t *testing.T) {
	_, _, ts := newTestServer(t)

	conn := dialWS(t, ts)

	greeting := readFrame(t, conn)
	assert.Equal(t, hub.EventAgentsCount, greeting.Event)
	assert.Equal(t, "0", string(greeting.Data))

	sendFrame(t, conn, hub.EventAgentJoin, map[string]any{"agentId": 1, "agentName": "Amina"})

	count := readUntil(t, conn, hub.EventAgentsCount)
	assert.Equal(t, "1", string(count.Data))

	list := readUntil(t, conn, hub.EventAgentsList)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(list.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Amina", entries[0]["agentName"])
}

func TestWebSocket_MessageFlow(t *testing.T) {
	_, st, ts := newTestServer(t)

	conn := dialWS(t, ts)
	readFrame(t, conn) // greeting

	sendFrame(t, conn, hub.EventMessageNew, map[string]any{
		"userId":  12345,
		"content": "URGENT!! my account was hacked",
	})

	f := readUntil(t, conn, hub.EventMessageReceived)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Equal(t, "CRITICAL", ev["urgencyLevel"])
	assert.Contains(t, ev["urgencyKeywords"], "urgent")

	cust, err := st.CustomerByUserID(t.Context(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "Customer 12345", cust.Name)
}

func TestWebSocket_DisconnectAfterSendStillDelivers(t *testing.T) {
	_, st, ts := newTestServer(t)

	watcher := dialWS(t, ts)
	readFrame(t, watcher) // greeting

	sender := dialWS(t, ts)
	readFrame(t, sender) // greeting

	// The sender drops the connection right after writing. The mutation
	// must still be recorded and broadcast to everyone else.
	sendFrame(t, sender, hub.EventMessageNew, map[string]any{
		"userId":  555,
		"content": "my payment has not been received",
	})
	require.NoError(t, sender.Close())

	f := readUntil(t, watcher, hub.EventMessageReceived)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Equal(t, "HIGH", ev["urgencyLevel"])

	msgs, err := st.ListMessages(t.Context(), store.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "my payment has not been received", msgs[0].Content)
}

func TestWebSocket_MalformedFrame(t *testing.T) {
	_, _, ts := newTestServer(t)

	conn := dialWS(t, ts)
	readFrame(t, conn) // greeting

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	f := readUntil(t, conn, hub.EventError)
	assert.Contains(t, string(f.Data), "Malformed frame")
}

func TestWebSocket_InvalidUserID(t *testing.T) {
	_, _, ts := newTestServer(t)

	conn := dialWS(t, ts)
	readFrame(t, conn) // greeting

	sendFrame(t, conn, hub.EventMessageNew, map[string]any{"userId": "abc", "content": "hi"})

	f := readUntil(t, conn, hub.EventError)
	assert.Contains(t, string(f.Data), "Invalid user ID")
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8480", resolveBindAddr(config.ServerConfig{Bind: "loopback", Port: 8480}))
	assert.Equal(t, "0.0.0.0:8480", resolveBindAddr(config.ServerConfig{Bind: "lan", Port: 8480}))
	assert.Equal(t, "10.0.0.5:9000", resolveBindAddr(config.ServerConfig{Bind: "custom", CustomBindHost: "10.0.0.5", Port: 9000}))
	assert.Equal(t, "127.0.0.1:1", resolveBindAddr(config.ServerConfig{Bind: "", Port: 1}))
}
