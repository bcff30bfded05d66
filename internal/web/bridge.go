package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	anet "github.com/peterkuimelis/anchorlink/internal/net"
)

const dialTimeout = 5 * time.Second

// connectRequest is the first message a browser sends on /ws.
type connectRequest struct {
	Type string `json:"type"`
	Addr string `json:"addr"`
	Name string `json:"name"`
}

// handleWebSocket joins a game host on the browser's behalf and relays
// messages both ways. The browser speaks the same JSON a terminal client
// does, one message per websocket frame instead of per line.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var req connectRequest
	if _, data, err := ws.Read(ctx); err != nil {
		s.logger.Warn("websocket read connect", zap.Error(err))
		return
	} else if err := json.Unmarshal(data, &req); err != nil || req.Type != "connect" {
		ws.Close(websocket.StatusPolicyViolation, "expected connect message")
		return
	}

	d := net.Dialer{Timeout: dialTimeout}
	host, err := d.DialContext(ctx, "tcp", req.Addr)
	if err != nil {
		msg, _ := json.Marshal(anet.ServerMessage{
			Type:  "error",
			Error: fmt.Sprintf("Could not connect to game host at %s: %v", req.Addr, err),
		})
		ws.Write(ctx, websocket.MessageText, msg)
		ws.Close(websocket.StatusNormalClosure, "connection failed")
		return
	}
	defer host.Close()

	if err := json.NewEncoder(host).Encode(anet.ClientMessage{Type: "join", Name: req.Name}); err != nil {
		s.logger.Warn("send join", zap.Error(err))
		return
	}
	s.logger.Info("bridging browser", zap.String("host", req.Addr), zap.String("name", req.Name))

	go s.browserToHost(ctx, ws, host)
	s.hostToBrowser(ctx, host, ws)
	ws.Close(websocket.StatusNormalClosure, "game ended")
}

// hostToBrowser forwards each line from the host as one websocket frame
// until the host hangs up.
func (s *Server) hostToBrowser(ctx context.Context, host net.Conn, ws *websocket.Conn) {
	sc := bufio.NewScanner(host)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := ws.Write(ctx, websocket.MessageText, line); err != nil {
			s.logger.Debug("websocket write", zap.Error(err))
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("host read", zap.Error(err))
	}
}

// browserToHost forwards browser frames to the host as lines. The host
// connection is closed when the browser goes away, which ends hostToBrowser.
func (s *Server) browserToHost(ctx context.Context, ws *websocket.Conn, host net.Conn) {
	defer host.Close()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if _, err := host.Write(append(data, '\n')); err != nil {
			s.logger.Debug("host write", zap.Error(err))
			return
		}
	}
}
