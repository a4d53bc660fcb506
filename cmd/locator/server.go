package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc/internal/tracker"
)

// StatusResponse is the response structure to /api/status/ requests.
type StatusResponse struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Tracker tracker.Snapshot `json:"tracker"`
}

type server struct {
	status *tracker.Status
	log    logrus.FieldLogger
}

// getStatusHandler dumps the tracker state. Methods allowed: GET
func (s *server) getStatusHandler(w http.ResponseWriter, r *http.Request) {
	s.log.WithField("remote", r.RemoteAddr).Debug("status request")
	rsp := StatusResponse{
		Status:  http.StatusOK,
		Message: "ok",
		Tracker: s.status.Snapshot(),
	}
	toWrite, err := json.Marshal(rsp)
	if err != nil {
		s.log.WithError(err).Error("marshal status")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.Write(toWrite)
}

func newRouter(status *tracker.Status, log logrus.FieldLogger) *mux.Router {
	s := &server{status: status, log: log}
	r := mux.NewRouter()
	r.StrictSlash(true)
	api := r.PathPrefix("/api").Subrouter()
	api.Methods("GET").Path("/status/").HandlerFunc(s.getStatusHandler)
	return r
}

// InitServer runs the status http server.
func InitServer(status *tracker.Status, host, port string, log logrus.FieldLogger) error {
	bind := fmt.Sprintf("%s:%s", host, port)
	log.WithField("bind", bind).Info("status server listening")
	return http.ListenAndServe(bind, newRouter(status, log))
}
