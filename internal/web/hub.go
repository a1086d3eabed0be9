package web

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// hub fans live status frames out to websocket clients. All writes to a
// connection happen on the run goroutine.
type hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	done      <-chan struct{}
	initial   func() []byte
	onMessage func([]byte)
	log       logrus.FieldLogger
}

func newHub(done <-chan struct{}, log logrus.FieldLogger, initial func() []byte, onMessage func([]byte)) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		done:      done,
		initial:   initial,
		onMessage: onMessage,
		log:       log,
	}
}

func (h *hub) run() {
	for {
		select {
		case <-h.done:
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
			if err := conn.WriteMessage(websocket.TextMessage, h.initial()); err != nil {
				delete(h.clients, conn)
				conn.Close()
			}
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.WithError(err).Warn("websocket send failed")
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// send queues msg for broadcast, dropping it if the queue is full.
func (h *hub) send(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.WithError(err).Warn("websocket error")
				}
				return
			}
			if h.onMessage != nil {
				h.onMessage(message)
			}
		}
	}()
}
