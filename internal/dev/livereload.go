package dev

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadMessage is pushed to connected browsers over the dev socket.
type ReloadMessage struct {
	Type  string `json:"type"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// ReloadHub manages browser WebSocket connections for live reload.
type ReloadHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewReloadHub creates an empty hub.
func NewReloadHub() *ReloadHub {
	return &ReloadHub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dev server only; any local origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and holds it open until the browser
// navigates away.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// NotifyReload asks every connected browser to do a full reload.
func (h *ReloadHub) NotifyReload(file string) {
	h.broadcast(ReloadMessage{Type: "reload", File: file})
}

// NotifyError shows an error overlay in every connected browser.
func (h *ReloadHub) NotifyError(msg string) {
	h.broadcast(ReloadMessage{Type: "error", Error: msg})
}

func (h *ReloadHub) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected browsers.
func (h *ReloadHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ClientScript is injected into every page in dev mode. It reconnects the
// socket after server restarts and reloads on notification.
const ClientScript = `(function(){
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect(){
    var ws = new WebSocket(proto + location.host + "/_flexi/livereload");
    ws.onmessage = function(ev){
      var msg = JSON.parse(ev.data);
      if (msg.type === "reload") location.reload();
      if (msg.type === "error") console.error("[flexi] " + msg.error);
    };
    ws.onclose = function(){ setTimeout(connect, 1000); };
  }
  connect();
})();`
