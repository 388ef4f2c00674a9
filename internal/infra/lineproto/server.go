// Package lineproto serves the colon separated command protocol over TCP,
// one command per line and one reply line per command.
package lineproto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"smart-switch/internal/application"
)

const maxLineLength = 1024

type Server struct {
	addr    string
	handler application.LineHandler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	running  bool

	idleTimeout time.Duration
}

func NewServer(addr string, handler application.LineHandler, logger *slog.Logger) *Server {
	return &Server{
		addr:        addr,
		handler:     handler,
		logger:      logger,
		conns:       make(map[net.Conn]struct{}),
		idleTimeout: 5 * time.Minute,
	}
}

func (s *Server) Name() string {
	return "tcp"
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.running = true

	s.wg.Add(1)
	go s.accept(ctx, ln)

	s.logger.Info("line protocol server starting", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	err := s.listener.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing listener: %w", err)
	}
	return nil
}

func (s *Server) accept(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("accepting connection", "error", err)
			}
			return
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("client connected", "remote_addr", remote)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxLineLength)
	w := bufio.NewWriter(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		reply := s.handler.HandleLine(ctx, line)
		if _, err := w.WriteString(reply + "\n"); err != nil {
			s.logger.Warn("writing reply", "remote_addr", remote, "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			s.logger.Warn("writing reply", "remote_addr", remote, "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("client read ended", "remote_addr", remote, "error", err)
	}
	s.logger.Debug("client disconnected", "remote_addr", remote)
}
