package simbackend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/types"
)

// Prefix is the path every endpoint is mounted under.
const Prefix = "/api/v1"

const shutdownTimeout = 5 * time.Second

// Insert limits per replication request.
const (
	maxPromotions = 50
	maxMovies     = 10
)

// Server serves the demo backend API.
type Server struct {
	store  *Store
	logger *logging.Logger
	delay  time.Duration
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithDelay pauses before every replication response, standing in for the
// propagation time of a real cluster.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server backed by store.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: logging.Discard(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET "+Prefix+"/empleados-vista-completa", s.HandleEmployees)
	s.mux.HandleFunc("GET "+Prefix+"/clientes-unificados", s.HandleClients)
	s.mux.HandleFunc("POST "+Prefix+"/replicacion-bidireccional", s.HandleBidirectional)
	s.mux.HandleFunc("POST "+Prefix+"/replicacion-unidireccional/quito-cuenca", s.unidirectional(nodes.Quito))
	s.mux.HandleFunc("POST "+Prefix+"/replicacion-unidireccional/guayaquil-cuenca", s.unidirectional(nodes.Guayaquil))
	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HandleEmployees processes GET /empleados-vista-completa requests.
func (s *Server) HandleEmployees(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Employees(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleClients processes GET /clientes-unificados requests.
func (s *Server) HandleClients(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Clients(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// promotionSnapshot is the promotions state of both replicas at one instant.
type promotionSnapshot struct {
	Moment          string
	InsertNode      string
	Insert          []types.Promotion
	OtherNode       string
	Other           []types.Promotion
	InSync          bool
	TotalInsertNode int
	TotalOtherNode  int
}

func (p promotionSnapshot) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"momento":                        p.Moment,
		"nodo_insercion":                 p.InsertNode,
		"total_registros_nodo_insercion": p.TotalInsertNode,
		"total_registros_otro_nodo":      p.TotalOtherNode,
		"replicacion_sincronizada":       p.InSync,
	}
	m["promociones_"+strings.ToLower(p.InsertNode)] = p.Insert
	m["promociones_"+strings.ToLower(p.OtherNode)] = p.Other
	return json.Marshal(m)
}

func (s *Server) promotionSnapshot(ctx context.Context, moment, insertNode, otherNode string) (promotionSnapshot, error) {
	ins, err := s.store.Promotions(ctx, insertNode)
	if err != nil {
		return promotionSnapshot{}, err
	}
	other, err := s.store.Promotions(ctx, otherNode)
	if err != nil {
		return promotionSnapshot{}, err
	}
	return promotionSnapshot{
		Moment:          moment,
		InsertNode:      insertNode,
		Insert:          ins,
		OtherNode:       otherNode,
		Other:           other,
		InSync:          len(ins) == len(other),
		TotalInsertNode: len(ins),
		TotalOtherNode:  len(other),
	}, nil
}

// HandleBidirectional processes POST /replicacion-bidireccional requests.
// Query: nodo_para_insertar (Quito|Guayaquil), cantidad_registros (1-50).
func (s *Server) HandleBidirectional(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	node := q.Get("nodo_para_insertar")
	if node == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "nodo_para_insertar es requerido")
		return
	}
	count, ok := intParam(w, q.Get("cantidad_registros"), "cantidad_registros")
	if !ok {
		return
	}
	if node != nodes.Quito && node != nodes.Guayaquil {
		writeDetail(w, http.StatusBadRequest, "NodoParaInsertar debe ser 'Quito' o 'Guayaquil'")
		return
	}
	if count < 1 || count > maxPromotions {
		writeDetail(w, http.StatusBadRequest, "Cantidad debe estar entre 1 y 50")
		return
	}
	other := nodes.Guayaquil
	if node == nodes.Guayaquil {
		other = nodes.Quito
	}

	ctx := r.Context()
	before, err := s.promotionSnapshot(ctx, "ANTES de la inserción", node, other)
	if err != nil {
		s.internalError(w, err)
		return
	}
	inserted, err := s.store.InsertPromotions(ctx, node, []string{other}, count)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if err := s.wait(ctx); err != nil {
		return
	}
	after, err := s.promotionSnapshot(ctx, "DESPUÉS de la inserción", node, other)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.logger.Infof("inserted %d promociones on %s, replicated to %s", count, node, other)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evidencia_replicacion_bidireccional": map[string]interface{}{
			"nodo_insercion":                node,
			"cantidad_registros_insertados": len(inserted),
			"1_estado_antes":                before,
			"2_registros_insertados":        inserted,
			"3_estado_despues":              after,
			"4_verificacion_replicacion": map[string]interface{}{
				"incremento_nodo_insercion": after.TotalInsertNode - before.TotalInsertNode,
				"incremento_otro_nodo":      after.TotalOtherNode - before.TotalOtherNode,
				"replicacion_exitosa":       after.InSync && after.TotalOtherNode-before.TotalOtherNode == count,
			},
		},
	})
}

// unidirectional handles POST /replicacion-unidireccional/{origin}-cuenca.
// Query: cantidad (1-10).
func (s *Server) unidirectional(origin string) http.HandlerFunc {
	originKey := strings.ToLower(origin) + "_peliculas"
	return func(w http.ResponseWriter, r *http.Request) {
		count, ok := intParam(w, r.URL.Query().Get("cantidad"), "cantidad")
		if !ok {
			return
		}
		if count < 1 || count > maxMovies {
			writeDetail(w, http.StatusBadRequest, "Cantidad debe estar entre 1 y 10")
			return
		}

		ctx := r.Context()
		tables := func() (map[string][]types.Movie, error) {
			src, err := s.store.Movies(ctx, origin)
			if err != nil {
				return nil, err
			}
			dst, err := s.store.Movies(ctx, nodes.Cuenca)
			if err != nil {
				return nil, err
			}
			return map[string][]types.Movie{originKey: src, "cuenca_peliculas": dst}, nil
		}

		before, err := tables()
		if err != nil {
			s.internalError(w, err)
			return
		}
		inserted, err := s.store.InsertMovies(ctx, origin, nodes.Cuenca, count)
		if err != nil {
			s.internalError(w, err)
			return
		}
		if err := s.wait(ctx); err != nil {
			return
		}
		after, err := tables()
		if err != nil {
			s.internalError(w, err)
			return
		}
		s.logger.Infof("inserted %d peliculas on %s, replicated to %s", count, origin, nodes.Cuenca)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tipo_replicacion":     "Unidireccional " + origin + " → " + nodes.Cuenca,
			"cantidad":             count,
			"tablas_antes":         before,
			"peliculas_insertadas": inserted,
			"tablas_despues":       after,
			"replicacion_exitosa":  len(after["cuenca_peliculas"])-len(before["cuenca_peliculas"]) == count,
		})
	}
}

// wait blocks for the configured delay or until ctx is done.
func (s *Server) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting demo backend on %s%s", addr, Prefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Stopping demo backend...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Errorf("request failed: %v", err)
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

// intParam parses a required integer query value, writing a 422 on failure.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		writeDetail(w, http.StatusUnprocessableEntity, name+" es requerido")
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, name+" debe ser un entero")
		return 0, false
	}
	return n, true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, types.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
