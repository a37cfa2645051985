package election

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sdow11/live-ad-detection-sub000/shared/logging"
)

// Server exposes the election RPC endpoints and the status query surface.
type Server struct {
	coord *Coordinator
}

func NewServer(coord *Coordinator) *Server {
	return &Server{coord: coord}
}

// Router mounts the election routes on a fresh router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	sr := r.PathPrefix("/election").Subrouter()
	sr.Path("/vote").Methods(http.MethodPost).HandlerFunc(s.handleVote)
	sr.Path("/heartbeat").Methods(http.MethodPost).HandlerFunc(s.handleHeartbeat)
	sr.Path("/status").Methods(http.MethodGet).HandlerFunc(s.handleStatus)

	return r
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, s.coord.HandleVoteRequest(req))
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var hb HeartbeatMessage
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.coord.HandleHeartbeat(hb)

	writeJSON(w, heartbeatAck{Status: "acknowledged"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.coord.Status())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("writing response: %v", err)
	}
}
