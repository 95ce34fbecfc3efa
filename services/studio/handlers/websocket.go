package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

// WSValidateResponse is one reply frame on the live validation socket.
// Seq echoes the position of the frame that produced the report so the
// editor can discard answers that arrive after the canvas moved on.
type WSValidateResponse struct {
	Action string        `json:"action"`
	Seq    int           `json:"seq"`
	Report *graph.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// Flows are capped at 500 nodes / 2000 edges; 1MB covers the largest
	// legal frame with headroom.
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleLiveValidation runs as-you-type validation over a WebSocket.
// Every frame the editor sends is a flow plus parameter values; every
// reply is the full validation report for that frame. Generation never
// happens here, so the socket stays cheap enough to drive on each edit.
func HandleLiveValidation(pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := uuid.New().String()
		slog.Info("Live validation session started", "sessionID", sessionID)

		// Send the session ID to the client immediately on connect.
		if err := sendJSON(ws, map[string]interface{}{
			"action":    "session_created",
			"sessionId": sessionID,
		}); err != nil {
			return
		}

		seq := 0
		for {
			var req datatypes.ValidateFlowRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Live validation client disconnected", "sessionID", sessionID, "error", err.Error())
				break
			}
			seq++

			// Transport-level rejects (hostile ids, oversized graphs) go
			// back as error frames; the session keeps running.
			if err := req.Validate(); err != nil {
				if err := sendJSON(ws, WSValidateResponse{
					Action: "validation_error",
					Seq:    seq,
					Error:  err.Error(),
				}); err != nil {
					return
				}
				continue
			}

			report := pipe.Validate(c.Request.Context(), &req.Flow, req.Parameters)
			if err := sendJSON(ws, WSValidateResponse{
				Action: "validation_report",
				Seq:    seq,
				Report: report,
			}); err != nil {
				return
			}
		}
	}
}
