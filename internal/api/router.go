// Package api exposes the HTTP control surface: the five user-facing
// actions (start, stop, pause, resume, flip-board) plus status and health.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/dispatch"
	"github.com/harrylevesque/chesstap/internal/telegram"
	"github.com/harrylevesque/chesstap/internal/utils"
)

// Controller bundles the components the control surface operates on.
type Controller struct {
	Dispatcher *dispatch.Dispatcher
	Mapper     *board.Mapper
	Poller     *telegram.Poller
	Log        *utils.Logger
}

// NewRouter builds the control router. tokenHash is a bcrypt hash of the
// control token; empty disables authentication.
func NewRouter(c *Controller, tokenHash string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(c.Log))
	if tokenHash != "" {
		r.Use(tokenAuth(tokenHash))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK\n"))
	}).Methods("GET")
	r.HandleFunc("/status", c.StatusHandler).Methods("GET")

	ctl := r.PathPrefix("/control").Subrouter()
	ctl.HandleFunc("/start", c.StartHandler).Methods("POST")
	ctl.HandleFunc("/stop", c.StopHandler).Methods("POST")
	ctl.HandleFunc("/pause", c.PauseHandler).Methods("POST")
	ctl.HandleFunc("/resume", c.ResumeHandler).Methods("POST")
	ctl.HandleFunc("/flip", c.FlipHandler).Methods("POST")
	ctl.HandleFunc("/emergency-stop", c.EmergencyStopHandler).Methods("POST")
	ctl.HandleFunc("/send", c.SendHandler).Methods("POST")

	return r
}

// requestLogger stamps each request with an id and logs it.
func requestLogger(log *utils.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.New().String()[:8]
			log.Infof("http %s: %s %s", id, r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
