package questions

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/handlers"
	"gitlab.com/offlinejudge.net/internal/handlers/response"
)

// pendingFrames is how many code frames may queue behind a running evaluation
const pendingFrames = 4

func (h *QuestionHandler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
}

func (h *QuestionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Stream grades every code frame the client sends, pushing one result frame
// per test and a report frame at the end of each run
func (h *QuestionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	problemID := mux.Vars(r)["id"]

	// Verify problem exists
	problem, err := h.catalogService.GetProblem(r.Context(), problemID)
	if err != nil {
		h.logFailure(r, "Failed to get problem", err)
		response.WriteServiceError(w, err)
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "requestId", handlers.RequestID(r.Context()), "error", err)
		return
	}
	defer conn.Close()
	if h.opts.MaxSourceBytes > 0 {
		conn.SetReadLimit(int64(2*h.opts.MaxSourceBytes + bodyOverhead))
	}

	// cancelled when a read fails, so a client that disconnects mid run
	// stops the run
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wsMu sync.Mutex
	send := func(frame StreamFrame) {
		wsMu.Lock()
		defer wsMu.Unlock()
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("Websocket write failed", "error", err)
			cancel()
		}
	}

	requests := make(chan StreamRequest, pendingFrames)
	go h.readFrames(ctx, cancel, conn, requests)

	for {
		var msg StreamRequest
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			msg = req
		}

		observer := primary.RunObserverFunc(func(_ context.Context, result domain.TestResult) {
			send(StreamFrame{Type: frameResult, Result: &result})
		})
		report, err := h.judgeService.Evaluate(ctx, problem, msg.Code, observer)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(StreamFrame{Type: frameError, Error: err.Error()})
			continue
		}
		send(StreamFrame{Type: frameReport, Report: report})
	}
}

// readFrames owns the read side of the connection. It closes requests and
// cancels the stream once the peer is gone.
func (h *QuestionHandler) readFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- StreamRequest) {
	defer close(requests)
	defer cancel()
	for {
		var msg StreamRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Websocket read failed", "error", err)
			}
			return
		}
		select {
		case requests <- msg:
		case <-ctx.Done():
			return
		}
	}
}
