package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"hzpresence/internal/app/presence"
)

func dial(t *testing.T, env *testEnv, identity string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	if identity != "" {
		url += "?" + IdentityQueryParam + "=" + identity
	}

	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readOnlineUsers(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt presence.OnlineUsersEvent
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, presence.EventOnlineUsers, evt.Event)

	return evt.Users
}

func TestWebSocket_Presence_Broadcasts(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// Given alice connects
	alice := dial(t, env, "alice")
	req.Equal([]string{"alice"}, readOnlineUsers(t, alice))

	// When bob connects
	bob := dial(t, env, "bob")

	// Then both see the two of them
	req.Equal([]string{"alice", "bob"}, readOnlineUsers(t, bob))
	req.Equal([]string{"alice", "bob"}, readOnlineUsers(t, alice))

	// When alice leaves
	req.NoError(alice.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	// Then bob is told
	req.Equal([]string{"bob"}, readOnlineUsers(t, bob))
	req.Equal([]string{"bob"}, env.deps.Hub.Online())

	req.Equal(1.0, testutil.ToFloat64(env.deps.Metrics.ActiveConnections))
	req.Equal(1.0, testutil.ToFloat64(env.deps.Metrics.UsersOnline))
}

func TestWebSocket_Anonymous_Connection(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	anon := dial(t, env, "")
	req.Empty(readOnlineUsers(t, anon))

	carol := dial(t, env, "carol")
	req.Equal([]string{"carol"}, readOnlineUsers(t, carol))
	req.Equal([]string{"carol"}, readOnlineUsers(t, anon))

	req.Equal(2.0, testutil.ToFloat64(env.deps.Metrics.ActiveConnections))
	req.Equal(1.0, testutil.ToFloat64(env.deps.Metrics.UsersOnline))
}

func TestWebSocket_Second_Session_Kicks_First(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	first := dial(t, env, "alice")
	req.Equal([]string{"alice"}, readOnlineUsers(t, first))

	second := dial(t, env, "alice")
	req.Equal([]string{"alice"}, readOnlineUsers(t, second))

	// the first session is closed with the session-kicked code
	req.NoError(first.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		_, _, err := first.ReadMessage()
		if err == nil {
			continue
		}

		var closeErr *websocket.CloseError
		req.ErrorAs(err, &closeErr)
		req.Equal(presence.WsCloseCodeSessionKicked, closeErr.Code)
		req.Equal(presence.KickReasonReplaced(), closeErr.Text)
		break
	}

	req.Eventually(func() bool {
		return testutil.ToFloat64(env.deps.Metrics.ActiveConnections) == 1
	}, 5*time.Second, 10*time.Millisecond)
	req.Equal([]string{"alice"}, env.deps.Hub.Online())
}

// joinStatuses sends plain GETs to /ws with a different X-Forwarded-For each time.
// Requests that pass the join limiter fail the upgrade with 400; limited ones get 429.
func joinStatuses(t *testing.T, env *testEnv, n int) []int {
	t.Helper()

	statuses := make([]int, 0, n)
	for i := range n {
		r, err := http.NewRequest(http.MethodGet, env.server.URL+"/ws", nil)
		require.NoError(t, err)
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))

		res, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		res.Body.Close()

		statuses = append(statuses, res.StatusCode)
	}

	return statuses
}

func TestWebSocket_Join_Limit_Ignores_Forwarded_For_By_Default(t *testing.T) {
	cfg := testConfig()
	cfg.WSJoinRate = 0.001
	cfg.WSJoinBurst = 1
	env := newTestEnvWithConfig(t, cfg)

	statuses := joinStatuses(t, env, 3)

	require.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusTooManyRequests}, statuses)
}

func TestWebSocket_Join_Limit_Uses_Forwarded_For_When_Trusted(t *testing.T) {
	cfg := testConfig()
	cfg.WSJoinRate = 0.001
	cfg.WSJoinBurst = 1
	cfg.TrustProxyHeaders = true
	env := newTestEnvWithConfig(t, cfg)

	statuses := joinStatuses(t, env, 3)

	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest}, statuses)
}
