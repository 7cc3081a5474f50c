package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridnav.ai/internal/nav/service"
	"gridnav.ai/internal/protocol"
)

// maxInFlight bounds the requests one connection may have outstanding; the
// reader stops reading until a slot frees up.
const maxInFlight = 32

type Server struct {
	svc *service.Service
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(svc *service.Service, logger *log.Logger) *Server {
	return &Server{
		svc: svc,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		session, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}
		s.logf("session %s opened from %s", session, r.RemoteAddr)

		out := make(chan []byte, maxInFlight)
		slots := make(chan struct{}, maxInFlight)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				enqueue(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "malformed json"))
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				enqueue(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad protocol_version"))
				continue
			}

			var handle func()
			switch base.Type {
			case protocol.TypePathRequest:
				var req protocol.PathRequestMsg
				if err := json.Unmarshal(msg, &req); err != nil || req.RequestID == "" {
					enqueue(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad PATH_REQUEST"))
					continue
				}
				handle = func() { enqueue(ctx, out, s.path(ctx, req)) }
			case protocol.TypeLOSRequest:
				var req protocol.LOSRequestMsg
				if err := json.Unmarshal(msg, &req); err != nil || req.RequestID == "" {
					enqueue(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad LOS_REQUEST"))
					continue
				}
				handle = func() { enqueue(ctx, out, s.los(ctx, req)) }
			default:
				enqueue(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "unknown type "+base.Type))
				continue
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			go func() {
				defer func() { <-slots }()
				handle()
			}()
		}
		cancel()
		s.logf("session %s closed", session)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", false
	}

	grids, err := s.svc.Grids(ctx)
	if err != nil {
		closeWith(conn, "service unavailable")
		return "", false
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		TickRateHz:      s.svc.TickRateHz(),
		Grids:           make([]protocol.GridRef, 0, len(grids)),
	}
	for _, g := range grids {
		welcome.Grids = append(welcome.Grids, protocol.GridRef{
			Key:        g.Key,
			Resolution: g.Resolution,
			Width:      g.Width,
			Height:     g.Height,
			CellSize:   g.CellSize,
			Regions:    g.Regions,
			Digest:     g.Digest,
		})
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return welcome.SessionID, true
}

func (s *Server) path(ctx context.Context, req protocol.PathRequestMsg) protocol.PathResultMsg {
	res := protocol.PathResultMsg{
		Type:            protocol.TypePathResult,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
	}
	ans, err := s.svc.RequestPath(ctx, service.PathQuery{
		GridKey:  req.GridKey,
		Start:    mgl32.Vec3(req.Start),
		End:      mgl32.Vec3(req.End),
		Cost:     req.Cost,
		Async:    req.Async,
		Optimize: req.Optimize,
	})
	if err != nil {
		res.Code = protocol.CodeForError(err)
		res.Message = err.Error()
		return res
	}
	res.OK = true
	res.Cells = ans.Cells
	res.Waypoints = points(ans.Waypoints)
	res.Optimized = points(ans.Optimized)
	res.Ticks = ans.Ticks
	return res
}

func (s *Server) los(ctx context.Context, req protocol.LOSRequestMsg) protocol.LOSResultMsg {
	res := protocol.LOSResultMsg{
		Type:            protocol.TypeLOSResult,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
	}
	visible, err := s.svc.LineOfSight(ctx, req.GridKey, mgl32.Vec3(req.From), mgl32.Vec3(req.To))
	if err != nil {
		res.Code = protocol.CodeForError(err)
		res.Message = err.Error()
		return res
	}
	res.OK = true
	res.Clear = visible
	return res
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func points(ps []mgl32.Vec3) [][3]float32 {
	if len(ps) == 0 {
		return nil
	}
	out := make([][3]float32, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}

func enqueue(ctx context.Context, out chan<- []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
