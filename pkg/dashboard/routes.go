package dashboard

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/salahayoub/distdash/pkg/backend"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/view"
)

// Operation categories.
const (
	CategoryHorizontal     = "Fragmentación Horizontal"
	CategoryVertical       = "Fragmentación Vertical"
	CategoryBidirectional  = "Replicación Bidireccional"
	CategoryUnidirectional = "Replicación Unidireccional"
)

// Route describes one replication action: which endpoint to call, how to
// build its query, and where the before/after snapshots sit in the response.
//
// Path, query values and key paths may contain placeholders:
//
//	{origin}        origin node name as given
//	{origin_lower}  origin node name lower-cased
//	{destination}   destination node name as given
//	{count}         Count
type Route struct {
	ID          string
	Title       string
	Description string

	Origin      string
	Destination string
	Table       string
	Kind        view.Kind

	Method string
	Path   string
	Query  map[string]string
	Count  int

	BeforeKey   string
	AfterKey    string
	BeforeTitle string
	AfterTitle  string

	// SimulateOnly routes never call the backend; they only log and drive the
	// node status simulation.
	SimulateOnly bool
}

func (r Route) expand(s string) string {
	return strings.NewReplacer(
		"{origin_lower}", strings.ToLower(r.Origin),
		"{origin}", r.Origin,
		"{destination}", r.Destination,
		"{count}", strconv.Itoa(r.Count),
	).Replace(s)
}

// Request resolves the route's path and query.
func (r Route) Request() (method, path string, query url.Values) {
	method = r.Method
	if method == "" {
		method = http.MethodPost
	}
	query = url.Values{}
	for k, v := range r.Query {
		query.Set(k, r.expand(v))
	}
	return method, r.expand(r.Path), query
}

// Keys resolves the before/after extraction paths.
func (r Route) Keys() (before, after string) {
	return r.expand(r.BeforeKey), r.expand(r.AfterKey)
}

// Classify returns the category and description logged for a promotions
// replication between origin and destination.
func Classify(origin, destination string) (category, description string) {
	if isBidirectionalPair(origin, destination) {
		return CategoryBidirectional,
			fmt.Sprintf("Promociones %s → %s (sincronización en ambos sentidos)", origin, destination)
	}
	return CategoryUnidirectional, fmt.Sprintf("Promociones %s → %s", origin, destination)
}

var bidirectionalPairs = [][2]string{
	{nodes.Guayaquil, nodes.Quito},
	{nodes.Quito, nodes.Guayaquil},
}

// isBidirectionalPair matches node names case-insensitively, like the
// registry does.
func isBidirectionalPair(origin, destination string) bool {
	for _, p := range bidirectionalPairs {
		if strings.EqualFold(p[0], origin) && strings.EqualFold(p[1], destination) {
			return true
		}
	}
	return false
}

func promotionsRoute(origin, destination, id string) Route {
	return Route{
		ID:          id,
		Title:       fmt.Sprintf("Promociones: %s → %s", origin, destination),
		Description: fmt.Sprintf("Replicación bidireccional de tabla promociones: %s a %s", origin, destination),
		Origin:      origin,
		Destination: destination,
		Table:       "promociones",
		Kind:        view.KindPromotions,
		Method:      http.MethodPost,
		Path:        backend.PathBidirectional,
		Query: map[string]string{
			"nodo_para_insertar": "{origin}",
			"cantidad_registros": "{count}",
		},
		Count:       1,
		BeforeKey:   "evidencia_replicacion_bidireccional.1_estado_antes.promociones_{origin_lower}",
		AfterKey:    "evidencia_replicacion_bidireccional.3_estado_despues.promociones_{origin_lower}",
		BeforeTitle: "Promociones {origin} (antes)",
		AfterTitle:  "Promociones {origin} (después)",
	}
}

func catalogRoute(destination, id string) Route {
	return Route{
		ID:           id,
		Title:        fmt.Sprintf("Catálogo: Cuenca → %s", destination),
		Description:  fmt.Sprintf("Replicación unidireccional de tabla catálogo: Cuenca a %s", destination),
		Origin:       nodes.Cuenca,
		Destination:  destination,
		Table:        "catalogo",
		Kind:         view.KindNone,
		SimulateOnly: true,
	}
}

func moviesRoute(origin, path, id string) Route {
	return Route{
		ID:          id,
		Title:       fmt.Sprintf("Alquiler: %s → Cuenca", origin),
		Description: fmt.Sprintf("Replicación unidireccional de tabla alquiler: %s a Cuenca", origin),
		Origin:      origin,
		Destination: nodes.Cuenca,
		Table:       "peliculas",
		Kind:        view.KindMovies,
		Method:      http.MethodPost,
		Path:        path,
		Query:       map[string]string{"cantidad": "{count}"},
		Count:       1,
		BeforeKey:   "tablas_antes.cuenca_peliculas",
		AfterKey:    "tablas_despues.cuenca_peliculas",
		BeforeTitle: "Películas Cuenca (antes)",
		AfterTitle:  "Películas Cuenca (después)",
	}
}

// DefaultRoutes returns the built-in replication routes in button order.
func DefaultRoutes() []Route {
	return []Route{
		promotionsRoute(nodes.Guayaquil, nodes.Quito, "promociones-guayaquil-quito"),
		promotionsRoute(nodes.Quito, nodes.Guayaquil, "promociones-quito-guayaquil"),
		catalogRoute(nodes.Quito, "catalogo-cuenca-quito"),
		catalogRoute(nodes.Guayaquil, "catalogo-cuenca-guayaquil"),
		moviesRoute(nodes.Quito, backend.PathQuitoCuenca, "peliculas-quito-cuenca"),
		moviesRoute(nodes.Guayaquil, backend.PathGuayaquilCuenca, "peliculas-guayaquil-cuenca"),
	}
}
