package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/internal/update"
)

// Server is the HTTP SPARQL 1.1 Protocol endpoint wrapping a QuadStore.
type Server struct {
	store   *store.QuadStore
	updater *update.Executor
	addr    string

	queriesTotal  *prometheus.CounterVec
	queryDuration prometheus.Histogram
	updatesTotal  *prometheus.CounterVec
}

// NewServer creates a new SPARQL HTTP server over st.
func NewServer(st *store.QuadStore, addr string) *Server {
	s := &Server{
		store:   st,
		updater: update.New(st),
		addr:    addr,
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oxigo_queries_total",
			Help: "Total SPARQL queries handled, by form and outcome.",
		}, []string{"form", "outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oxigo_query_duration_seconds",
			Help:    "SPARQL query evaluation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oxigo_updates_total",
			Help: "Total SPARQL update requests handled, by outcome.",
		}, []string{"outcome"}),
	}
	prometheus.MustRegister(s.queriesTotal, s.queryDuration, s.updatesTotal)
	return s
}

// Start starts the HTTP server, blocking until it exits.
func (s *Server) Start() error {
	router := httprouter.New()
	router.GET("/", s.handleRoot)
	router.GET("/sparql", s.handleSPARQL)
	router.POST("/sparql", s.handleSPARQL)
	router.OPTIONS("/sparql", s.handleSPARQLOptions)
	router.POST("/data", s.handleDataUpload)
	router.OPTIONS("/data", s.handleDataOptions)

	router.POST("/update", s.handleUpdate)
	router.OPTIONS("/update", s.handleSPARQLOptions)

	router.GET("/store", s.handleGraphStoreGet)
	router.PUT("/store", s.handleGraphStorePut)
	router.POST("/store", s.handleGraphStorePost)
	router.DELETE("/store", s.handleGraphStoreDelete)

	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting SPARQL endpoint at http://%s/sparql", s.addr)
	return httpServer.ListenAndServe()
}

// TotalQuads reports the store's current quad count, ignoring errors
// (surfaced as 0) since this is purely informational for the UI banner.
func (s *Server) TotalQuads() int64 {
	n, _ := s.store.Len(context.Background())
	return n
}
