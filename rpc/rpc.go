package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"time"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/models"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/room"
	"github.com/wfunc/wordgame/services"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and serves the given receivers.
func NewServer(addr string, receivers map[string]interface{}) (*Server, error) {
	srv := rpc.NewServer()
	for name, rcvr := range receivers {
		if err := srv.RegisterName(name, rcvr); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only operator queries. Methods follow the net/rpc signature.
type AdminService struct {
	rooms   *room.Manager
	matches *services.MatchService
}

func NewAdminService(rooms *room.Manager, matches *services.MatchService) *AdminService {
	return &AdminService{rooms: rooms, matches: matches}
}

type ListRoomsArgs struct {
	// Prefix filters rooms by code; empty lists all.
	Prefix string
}

type ListRoomsReply struct {
	Rooms []network.RoomInfo
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, r := range a.rooms.List() {
		if !strings.HasPrefix(r.Code, args.Prefix) {
			continue
		}
		reply.Rooms = append(reply.Rooms, r.Info())
	}
	return nil
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (a *AdminService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	entries, err := a.matches.Leaderboard(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

type MatchArgs struct {
	MatchID string
}

type MatchReply struct {
	Record *models.MatchRecord
}

func (a *AdminService) Match(args *MatchArgs, reply *MatchReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	rec, err := a.matches.Match(ctx, args.MatchID)
	if err != nil {
		return err
	}
	reply.Record = rec
	return nil
}
