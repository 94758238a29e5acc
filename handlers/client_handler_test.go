package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/messages"
	"terminus-realm/mapgen/persistence"
	"terminus-realm/mapgen/services"
)

func init() {
	logger.Silence()
}

type envelope struct {
	Type    messages.MessageType `json:"type"`
	Payload json.RawMessage      `json:"payload"`
}

type testServer struct {
	url     string
	manager *ClientManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := persistence.NewJSONStore(filepath.Join(t.TempDir(), "maps.json"))
	require.NoError(t, err)

	mapService := services.NewMapService(store, services.DefaultMaxRetries)
	manager := NewClientManager()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		HandleClientConnection(conn, mapService, manager)
	}))
	t.Cleanup(srv.Close)

	return &testServer{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		manager: manager,
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ messages.MessageType, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(messages.BaseMessage{Type: typ, Payload: payload}))
}

func receive(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestGenerateLoadAndView(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	seed := int64(12345)
	send(t, conn, messages.MessageTypeGenerate, messages.GenerateMessage{Width: 36, Height: 36, Players: 2, Zones: 4, Seed: &seed})

	env := receive(t, conn)
	require.Equal(t, messages.MessageTypeGenerated, env.Type, string(env.Payload))
	var generated messages.MapMessage
	require.NoError(t, json.Unmarshal(env.Payload, &generated))
	require.NotNil(t, generated.Map)
	assert.Equal(t, 36, generated.Map.Width)
	assert.Len(t, generated.Map.Players, 2)
	id := generated.Map.ID

	send(t, conn, messages.MessageTypeLoadMap, messages.LoadMapMessage{ID: id})
	env = receive(t, conn)
	require.Equal(t, messages.MessageTypeMap, env.Type)
	var loaded messages.MapMessage
	require.NoError(t, json.Unmarshal(env.Payload, &loaded))
	assert.Equal(t, generated.Map.Tiles, loaded.Map.Tiles)

	send(t, conn, messages.MessageTypeListMaps, nil)
	env = receive(t, conn)
	require.Equal(t, messages.MessageTypeMapList, env.Type)
	var list messages.MapListMessage
	require.NoError(t, json.Unmarshal(env.Payload, &list))
	require.Len(t, list.Maps, 1)
	assert.Equal(t, id, list.Maps[0].ID)

	send(t, conn, messages.MessageTypeView, messages.ViewMessage{ID: id, X: 10, Y: 10, Radius: 3})
	env = receive(t, conn)
	require.Equal(t, messages.MessageTypeMapView, env.Type)
	var view messages.MapViewMessage
	require.NoError(t, json.Unmarshal(env.Payload, &view))
	assert.Len(t, view.Tiles, 7)
	assert.Equal(t, generated.Map.Tiles[0][10][10], view.Tiles[3][3])
}

func TestGenerateIsAnnouncedToOthers(t *testing.T) {
	srv := newTestServer(t)
	author := srv.dial(t)
	watcher := srv.dial(t)

	require.Eventually(t, func() bool { return srv.manager.Count() == 2 }, 5*time.Second, 10*time.Millisecond)

	seed := int64(8)
	send(t, author, messages.MessageTypeGenerate, messages.GenerateMessage{Width: 36, Height: 36, Players: 2, Seed: &seed})

	env := receive(t, author)
	require.Equal(t, messages.MessageTypeGenerated, env.Type, string(env.Payload))
	var generated messages.MapMessage
	require.NoError(t, json.Unmarshal(env.Payload, &generated))

	env = receive(t, watcher)
	require.Equal(t, messages.MessageTypeMapAnnounced, env.Type)
	var announced messages.MapAnnouncedMessage
	require.NoError(t, json.Unmarshal(env.Payload, &announced))
	assert.Equal(t, generated.Map.ID, announced.Map.ID)
	assert.Equal(t, generated.Map.Seed, announced.Map.Seed)
}

func TestErrorReplies(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	tests := []struct {
		name    string
		typ     messages.MessageType
		payload interface{}
		code    string
	}{
		{"unknown type", "teleport", nil, "UNKNOWN_MESSAGE_TYPE"},
		{"invalid options", messages.MessageTypeGenerate, messages.GenerateMessage{Width: 2, Height: 2, Players: 1}, "INVALID_OPTIONS"},
		{"unknown difficulty", messages.MessageTypeGenerate, messages.GenerateMessage{Width: 36, Height: 36, Players: 2, Difficulty: "brutal"}, "INVALID_OPTIONS"},
		{"missing map", messages.MessageTypeLoadMap, messages.LoadMapMessage{ID: "nope"}, "MAP_NOT_FOUND"},
		{"missing view", messages.MessageTypeView, messages.ViewMessage{ID: "nope"}, "MAP_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.typ, tt.payload)
			env := receive(t, conn)
			require.Equal(t, messages.MessageTypeError, env.Type)

			var errMsg messages.ErrorMessage
			require.NoError(t, json.Unmarshal(env.Payload, &errMsg))
			assert.Equal(t, tt.code, errMsg.Code)
			assert.NotEmpty(t, errMsg.Message)
		})
	}
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)
	require.Eventually(t, func() bool { return srv.manager.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.manager.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}
