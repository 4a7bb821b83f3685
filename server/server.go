package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/wfunc/wordgame/broadcast"
	"github.com/wfunc/wordgame/config"
	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/monitor"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/room"
	wordgame_rpc "github.com/wfunc/wordgame/rpc"
	"github.com/wfunc/wordgame/services"
	"github.com/wfunc/wordgame/session"
	"github.com/wfunc/wordgame/timer"
)

type GameServer struct {
	cfg            config.ServerConfig
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	matchService   *services.MatchService
	monitor        *monitor.Monitor
	rpcServer      *wordgame_rpc.Server
	httpServer     *http.Server
	scheduler      *timer.Scheduler

	// matchCtx bounds every running match; cancelled on shutdown.
	matchCtx    context.Context
	cancelMatch context.CancelFunc
}

// NewGameServer wires the HTTP, websocket and admin RPC surfaces. The RPC listener is only
// opened when cfg.RPCAddress is set.
func NewGameServer(cfg config.ServerConfig, rooms *room.Manager, matches *services.MatchService, mon *monitor.Monitor) (*GameServer, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &GameServer{
		cfg:            cfg,
		roomManager:    rooms,
		sessionManager: session.NewManager(),
		matchService:   matches,
		monitor:        mon,
		scheduler:      timer.NewScheduler(),
		matchCtx:       ctx,
		cancelMatch:    cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	if cfg.RPCAddress != "" {
		rpcServer, err := wordgame_rpc.NewServer(cfg.RPCAddress, map[string]interface{}{
			"Admin": wordgame_rpc.NewAdminService(rooms, matches),
		})
		if err != nil {
			cancel()
			s.scheduler.Stop()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	if cfg.Housekeeping > 0 {
		s.scheduler.Every(cfg.Housekeeping, s.housekeeping)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes wrapped in CORS.
func (s *GameServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleRooms).Methods(http.MethodGet)
	r.Handle("/metrics", s.monitor.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r)
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops running matches and the listeners.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.cancelMatch()
	s.scheduler.Stop()
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"players": s.sessionManager.Count(),
		"rooms":   s.roomManager.Count(),
	})
}

func (s *GameServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.roomList())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugw("failed to write response", "error", err)
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

// handleConnection runs the receive loop of one client until it disconnects.
func (s *GameServer) handleConnection(conn network.Connection) {
	outbox := broadcast.NewOutbox(conn, s.cfg.OutboxSize)
	sess := s.sessionManager.Create(outbox)
	// a listening player answers pings, which keeps it out of the idle sweep
	if pn, ok := conn.(network.PongNotifier); ok {
		pn.OnPong(sess.Touch)
	}
	if s.cfg.Heartbeat > 0 {
		outbox.SetHeartbeat(s.cfg.Heartbeat)
	}
	connID := uuid.NewString()
	limiter := newLimiter(s.cfg.RateLimit, s.cfg.RateBurst)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infow("new connection", "remote", conn.RemoteAddr(), "player", sess.ID, "conn", connID)

	defer func() {
		s.disconnect(sess)
		outbox.Close()
		s.monitor.DecOnlinePlayers()
		logger.Log.Infow("connection closed", "remote", conn.RemoteAddr(), "player", sess.ID, "conn", connID)
	}()

	for {
		packet, err := outbox.ReadPacket()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			s.monitor.IncMessagesDropped()
			logger.Log.Debugw("rate limited", "player", sess.ID, "msg", packet.MsgID)
			continue
		}
		sess.Touch()
		start := time.Now()
		s.dispatch(sess, packet)
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}

// disconnect removes the player from its room and the registry.
func (s *GameServer) disconnect(sess *session.Session) {
	if sess.RoomID() != 0 {
		if _, _, err := s.roomManager.Leave(sess); err != nil {
			logger.Log.Debugw("leave on disconnect", "player", sess.ID, "error", err)
		}
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
	s.sessionManager.Remove(sess.ID)
}

// housekeeping disconnects idle players and drops rooms left empty.
func (s *GameServer) housekeeping() {
	if s.cfg.IdleTimeout > 0 {
		for _, sess := range s.sessionManager.IdleSince(time.Now().Add(-s.cfg.IdleTimeout)) {
			logger.Log.Infow("closing idle connection", "player", sess.ID, "last_active", sess.LastActive())
			_ = sess.Close()
		}
	}
	for _, r := range s.roomManager.List() {
		s.roomManager.RemoveIfEmpty(r.ID)
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
