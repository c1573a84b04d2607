package service

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/mosaicnetworks/duststorm/src/telemetry"
	"github.com/sirupsen/logrus"
)

// ValuesProvider is implemented by handlers that can list the values they
// know. Values may be called from any goroutine.
type ValuesProvider interface {
	Values() []int32
}

// Service exposes the state of a node over HTTP. It never touches the
// protocol stream.
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/values", s.makeHandler(s.GetValues))
	s.mux.Handle("/metrics", telemetry.MetricsHandler())
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the HTTP handler of the service, with every route mounted.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve listens on the bind address and serves the API. This is a blocking
// call; it returns nil after Close.
func (s *Service) Serve() error {
	l, err := net.Listen("tcp", s.bindAddress)
	if err != nil {
		s.logger.WithError(err).Error("Cannot listen")
		return err
	}

	s.Lock()
	s.server = &http.Server{Handler: s.mux}
	server := s.server
	s.Unlock()

	s.logger.WithField("bind_address", l.Addr().String()).Debug("Serving API")

	err = server.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops a running Serve.
func (s *Service) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetValues returns the values known to the node, if its handler keeps any.
func (s *Service) GetValues(w http.ResponseWriter, r *http.Request) {
	vp, ok := s.node.Handler().(ValuesProvider)
	if !ok {
		http.Error(w, "this node does not keep values", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(vp.Values())
}
