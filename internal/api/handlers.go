package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harrylevesque/chesstap/internal/telegram"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Dispatcher string `json:"dispatcher"`
	Poller     string `json:"poller"`
	Mirrored   bool   `json:"mirrored"`
	Cursor     int64  `json:"cursor"`
}

// StatusHandler reports dispatcher state, poller state, mirror mode and the
// update cursor.
func (c *Controller) StatusHandler(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, StatusResponse{
		Dispatcher: c.Dispatcher.Status().String(),
		Poller:     c.Poller.State().String(),
		Mirrored:   c.Mapper.Mirrored(),
		Cursor:     c.Poller.Cursor(),
	})
}

// StartHandler starts the poller and puts the dispatcher into Running.
func (c *Controller) StartHandler(w http.ResponseWriter, r *http.Request) {
	c.Dispatcher.Start()
	c.Poller.Start()
	c.Log.Info("control: start")
	JSONResponse(w, http.StatusOK, map[string]string{"dispatcher": c.Dispatcher.Status().String()})
}

// StopHandler stops the poller and returns the dispatcher to Idle.
func (c *Controller) StopHandler(w http.ResponseWriter, r *http.Request) {
	c.Poller.Stop()
	c.Dispatcher.Stop()
	c.Log.Info("control: stop")
	JSONResponse(w, http.StatusOK, map[string]string{"dispatcher": c.Dispatcher.Status().String()})
}

// PauseHandler pauses move execution between moves.
func (c *Controller) PauseHandler(w http.ResponseWriter, r *http.Request) {
	c.Dispatcher.Pause()
	c.Log.Info("control: pause")
	JSONResponse(w, http.StatusOK, map[string]string{"dispatcher": c.Dispatcher.Status().String()})
}

// ResumeHandler lifts a pause.
func (c *Controller) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	c.Dispatcher.Resume()
	c.Log.Info("control: resume")
	JSONResponse(w, http.StatusOK, map[string]string{"dispatcher": c.Dispatcher.Status().String()})
}

// FlipHandler toggles mirror mode for a 180-degree rotated board view.
func (c *Controller) FlipHandler(w http.ResponseWriter, r *http.Request) {
	mirrored := c.Mapper.ToggleMirror()
	c.Log.Infof("control: flip (mirrored=%v)", mirrored)
	JSONResponse(w, http.StatusOK, map[string]bool{"mirrored": mirrored})
}

// EmergencyStopHandler forces the dispatcher into Paused, whatever its
// current state.
func (c *Controller) EmergencyStopHandler(w http.ResponseWriter, r *http.Request) {
	c.Dispatcher.EmergencyStop()
	c.Log.Warn("control: emergency stop")
	JSONResponse(w, http.StatusOK, map[string]string{"dispatcher": c.Dispatcher.Status().String()})
}

// SendRequest is the body of POST /control/send.
type SendRequest struct {
	Text string `json:"text"`
}

// SendHandler relays a locally generated move (or any text) back to the
// remote party.
func (c *Controller) SendHandler(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "missing text"})
		return
	}
	if err := c.Poller.SendText(r.Context(), req.Text); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, telegram.ErrNoReplyTarget) {
			status = http.StatusConflict
		}
		JSONResponse(w, status, map[string]string{"error": err.Error()})
		return
	}
	JSONResponse(w, http.StatusOK, map[string]string{"sent": req.Text})
}
