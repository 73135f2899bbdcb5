package events

import (
	"io"
	"net"

	"github.com/rs/zerolog/log"
)

// Server accepts raw TCP subscribers for the event feed (one JSON object
// per line). cmd/import-watch is the reference client.
type Server struct {
	Addr string
	Hub  *Hub

	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run listens and serves until Close. Subscribers are write-only; anything
// they send is drained and ignored, and EOF unsubscribes them.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Info().Str("addr", s.Addr).Msg("tcp event feed listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	s.Hub.Add(conn)
	s.Hub.Welcome(conn)
	log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("event client connected")

	_, _ = io.Copy(io.Discard, conn)

	s.Hub.Remove(conn)
	log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("event client disconnected")
}

func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}
