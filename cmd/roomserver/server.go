package main

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/comalice/roomforge/room"
)

// server holds the roomserver's HTTP handlers: a websocket upgrade at /ws
// and a plain-text health probe at /healthz. Grounded on wfunc/gameserver's GameServer.handleWebSocket — an
// upgrader with a permissive CheckOrigin (this is a game backend behind
// its own auth layer, not a browser-facing API) handing each accepted
// connection to its own goroutine pair.
type server struct {
	upgrader websocket.Upgrader
	manager  *room.Manager
	defs     *definitionRegistry
	logger   *zap.Logger
}

func newServer(manager *room.Manager, defs *definitionRegistry, logger *zap.Logger) *server {
	return &server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		manager: manager,
		defs:    defs,
		logger:  logger,
	}
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("roomserver: upgrade failed", zap.Error(err))
		return
	}
	c := newConnection(conn, s.manager, s.defs, s.logger)
	s.logger.Info("roomserver: connection accepted", zap.String("session", c.sessionID), zap.String("remote", r.RemoteAddr))
	go c.serve()
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
