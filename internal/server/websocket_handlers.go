package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/idcheck/internal/cascade"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

const (
	channelWebSocket = "websocket"
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMessageType    = "verify_response"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are governed by the CORS origin setting.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketVerifyRequest is a verification submitted over a WebSocket.
// Images travel base64 encoded.
type WebSocketVerifyRequest struct {
	Type         string `json:"type"` // "verify"
	Front        []byte `json:"front,omitempty"`
	FrontName    string `json:"front_name,omitempty"`
	Back         []byte `json:"back,omitempty"`
	BackName     string `json:"back_name,omitempty"`
	Surname      string `json:"surname"`
	GivenName    string `json:"given_name"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketVerifyResponse reports progress and results of a verification.
type WebSocketVerifyResponse struct {
	Type      string                `json:"type"`
	Status    string                `json:"status"` // "processing", "completed", "error"
	Progress  float64               `json:"progress,omitempty"`
	Attempt   *cascade.AttemptEvent `json:"attempt,omitempty"`
	Result    *verify.Verdict       `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
	ErrorType string                `json:"error_type,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

// verifyWebSocketHandler streams attempt events while verifying documents.
func (s *Server) verifyWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "request_id", RequestID(r.Context()))
	s.handleWebSocketConnection(r, conn)
}

// handleWebSocketConnection processes messages until the client leaves.
func (s *Server) handleWebSocketConnection(r *http.Request, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(r, conn, data)
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}
}

// handleWebSocketMessage runs one verification request.
func (s *Server) handleWebSocketMessage(r *http.Request, conn WebSocketConnWriter, data []byte) {
	var msg WebSocketVerifyRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if msg.Type != "verify" {
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+msg.Type)
		return
	}
	if s.verifier == nil {
		s.sendWebSocketError(conn, "", "unavailable", "Verifier not initialized")
		return
	}

	requestID := uuid.NewString()
	req, err := buildRequest(msg.Surname, msg.GivenName, msg.DateOfBirth, msg.DocumentType)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}
	if len(msg.Front) == 0 && len(msg.Back) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No document image provided")
		return
	}
	ctx, cancel := s.requestContext(WithRequestID(r.Context(), requestID))
	defer cancel()

	if len(msg.Front) > 0 {
		s.attachDocument(ctx, &req, &document{side: verify.SideFront, name: msg.FrontName, data: msg.Front})
	}
	if len(msg.Back) > 0 {
		s.attachDocument(ctx, &req, &document{side: verify.SideBack, name: msg.BackName, data: msg.Back})
	}

	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      wsMessageType,
		Status:    "processing",
		RequestID: requestID,
	})

	req.Observer = cascade.Observers(AttemptMetrics, cascade.ObserverFunc(func(e cascade.AttemptEvent) {
		s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
			Type:      wsMessageType,
			Status:    "processing",
			Progress:  float64(e.Index+1) / float64(max(e.Total, 1)),
			Attempt:   &e,
			RequestID: requestID,
		})
	}))

	start := time.Now()
	verdict, err := s.verifier.Verify(ctx, req)
	recordVerification(channelWebSocket, verdict, err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("WebSocket verification failed", "request_id", requestID, "error", err)
		s.sendWebSocketError(conn, requestID, "processing_error", "Verification failed")
		return
	}

	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      wsMessageType,
		Status:    "completed",
		Progress:  1.0,
		Result:    verdict,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketVerifyResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
