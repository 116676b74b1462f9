package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

type StdioServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error
	Listen(ctx context.Context) error
}

// NewStdioServer serves newline-delimited JSON-RPC requests read from in
// and writes one response line per request to out. Notifications get no
// response.
func NewStdioServer(in io.Reader, out io.Writer) StdioServer {
	return &stdioServer{
		in:        in,
		out:       out,
		endpoints: make(map[mcp.MCPMethod]MCPEndpoint),
	}
}

type stdioServer struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex

	endpoints map[mcp.MCPMethod]MCPEndpoint
}

func (s *stdioServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			var req JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				s.write(ParseError(err))
				continue
			}

			if req.ID.IsNil() {
				continue
			}

			var resp mcp.JSONRPCMessage

			endpoint, ok := s.endpoints[req.Method]
			if ok {
				resp = endpoint(ctx, req)
			} else {
				resp = MethodNotFound(req)
			}

			s.write(resp)
		}
	}
}

func (s *stdioServer) write(msg mcp.JSONRPCMessage) {
	bs, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Write(append(bs, '\n'))
}

func (s *stdioServer) AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error {
	_, ok := s.endpoints[method]
	if ok {
		return errors.New("endpoint already exists")
	}

	s.endpoints[method] = endpoint
	return nil
}
