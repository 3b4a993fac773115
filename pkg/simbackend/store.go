// Package simbackend is a self-contained stand-in for the distributed
// database API. Each node is an in-memory sqlite database; replication is
// performed by copying inserted rows to the peer databases.
package simbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/types"
)

// ErrUnknownNode is returned for a node name that has no database.
var ErrUnknownNode = errors.New("unknown node")

const timestampLayout = "2006-01-02 15:04:05"

// schemas holds the DDL applied to each node.
var schemas = map[string]string{
	nodes.Quito: `
	CREATE TABLE clientes (
		cliente_id INTEGER PRIMARY KEY,
		nombre TEXT NOT NULL,
		apellido TEXT NOT NULL,
		email TEXT,
		telefono TEXT,
		direccion TEXT,
		ciudad_registro TEXT NOT NULL,
		fecha_creacion TEXT NOT NULL
	);
	CREATE TABLE empleados (
		empleado_id INTEGER PRIMARY KEY,
		nombre TEXT NOT NULL,
		apellido TEXT NOT NULL,
		cargo TEXT
	);
	CREATE TABLE promociones (
		promocion_id INTEGER PRIMARY KEY AUTOINCREMENT,
		codigo_promo TEXT NOT NULL,
		descripcion TEXT,
		descuento_porcentaje REAL,
		fecha_creacion TEXT NOT NULL,
		ciudad TEXT
	);
	CREATE TABLE peliculas_catalogo (
		pelicula_id INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo TEXT NOT NULL,
		genero TEXT,
		clasificacion TEXT,
		director TEXT,
		sinopsis TEXT,
		url_poster TEXT,
		fecha_creacion TEXT NOT NULL
	);`,
	nodes.Guayaquil: `
	CREATE TABLE clientes (
		cliente_id INTEGER PRIMARY KEY,
		nombre TEXT NOT NULL,
		apellido TEXT NOT NULL,
		email TEXT,
		telefono TEXT,
		direccion TEXT,
		ciudad_registro TEXT NOT NULL,
		fecha_creacion TEXT NOT NULL
	);
	CREATE TABLE empleados (
		empleado_id INTEGER PRIMARY KEY,
		ciudad_tienda TEXT,
		salario REAL,
		fecha_contratacion TEXT,
		contacto_emergencia TEXT
	);
	CREATE TABLE promociones (
		promocion_id INTEGER PRIMARY KEY AUTOINCREMENT,
		codigo_promo TEXT NOT NULL,
		descripcion TEXT,
		descuento_porcentaje REAL,
		fecha_creacion TEXT NOT NULL,
		ciudad TEXT
	);
	CREATE TABLE peliculas_catalogo (
		pelicula_id INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo TEXT NOT NULL,
		genero TEXT,
		clasificacion TEXT,
		director TEXT,
		sinopsis TEXT,
		url_poster TEXT,
		fecha_creacion TEXT NOT NULL
	);`,
	nodes.Cuenca: `
	CREATE TABLE clientes (
		cliente_id INTEGER PRIMARY KEY,
		nombre TEXT NOT NULL,
		apellido TEXT NOT NULL,
		email TEXT,
		telefono TEXT,
		direccion TEXT,
		ciudad_registro TEXT NOT NULL,
		fecha_creacion TEXT NOT NULL
	);
	CREATE TABLE peliculas_catalogo (
		pelicula_id INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo TEXT NOT NULL,
		genero TEXT,
		clasificacion TEXT,
		director TEXT,
		sinopsis TEXT,
		url_poster TEXT,
		fecha_creacion TEXT NOT NULL
	);`,
}

// Store owns one database per node.
type Store struct {
	dbs map[string]*sql.DB
	now func() time.Time

	// Serializes insert-and-copy so peers never diverge.
	mu sync.Mutex
}

// Open creates and seeds the three node databases.
func Open(ctx context.Context, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	s := &Store{dbs: make(map[string]*sql.DB, len(schemas)), now: now}

	for _, node := range []string{nodes.Quito, nodes.Guayaquil, nodes.Cuenca} {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open %s database: %w", node, err)
		}
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		s.dbs[node] = db

		if _, err := db.ExecContext(ctx, schemas[node]); err != nil {
			s.Close()
			return nil, fmt.Errorf("create %s schema: %w", node, err)
		}
	}

	if err := s.seed(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes every database.
func (s *Store) Close() error {
	var errs []error
	for _, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) db(node string) (*sql.DB, error) {
	db, ok := s.dbs[node]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}
	return db, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// Clients returns the union of the horizontal client fragments, newest first.
func (s *Store) Clients(ctx context.Context) ([]types.Client, error) {
	var out []types.Client
	for _, node := range []string{nodes.Cuenca, nodes.Quito, nodes.Guayaquil} {
		db, _ := s.db(node)
		rows, err := db.QueryContext(ctx, `SELECT cliente_id, nombre, apellido, email, telefono,
			direccion, ciudad_registro, fecha_creacion FROM clientes`)
		if err != nil {
			return nil, fmt.Errorf("query %s clientes: %w", node, err)
		}
		for rows.Next() {
			var (
				c  types.Client
				id int64
			)
			if err := rows.Scan(&id, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
				&c.Address, &c.RegistrationCity, &c.CreatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s clientes: %w", node, err)
			}
			c.ID = types.ID(fmt.Sprint(id))
			out = append(out, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	sortByCreatedDesc(out)
	return out, nil
}

// Employees joins the Quito and Guayaquil vertical fragments by id.
func (s *Store) Employees(ctx context.Context) ([]types.Employee, error) {
	quito, _ := s.db(nodes.Quito)
	rows, err := quito.QueryContext(ctx, `SELECT empleado_id, nombre, apellido, cargo FROM empleados ORDER BY empleado_id`)
	if err != nil {
		return nil, fmt.Errorf("query quito empleados: %w", err)
	}
	var out []types.Employee
	index := make(map[int64]int)
	for rows.Next() {
		var (
			e  types.Employee
			id int64
		)
		if err := rows.Scan(&id, &e.FirstName, &e.LastName, &e.Role); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan quito empleados: %w", err)
		}
		e.ID = types.ID(fmt.Sprint(id))
		index[id] = len(out)
		out = append(out, e)
	}
	rows.Close()

	gye, _ := s.db(nodes.Guayaquil)
	rows, err = gye.QueryContext(ctx, `SELECT empleado_id, ciudad_tienda, salario, fecha_contratacion, contacto_emergencia FROM empleados`)
	if err != nil {
		return nil, fmt.Errorf("query guayaquil empleados: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id                   int64
			city, hired, contact string
			salary               float64
		)
		if err := rows.Scan(&id, &city, &salary, &hired, &contact); err != nil {
			return nil, fmt.Errorf("scan guayaquil empleados: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		out[i].StoreCity = city
		out[i].Salary = salary
		out[i].HireDate = hired
		out[i].EmergencyContact = contact
	}
	return out, rows.Err()
}

// Promotions lists the promociones table on node.
func (s *Store) Promotions(ctx context.Context, node string) ([]types.Promotion, error) {
	db, err := s.db(node)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT promocion_id, codigo_promo, descripcion, descuento_porcentaje,
		fecha_creacion, ciudad FROM promociones ORDER BY promocion_id`)
	if err != nil {
		return nil, fmt.Errorf("query %s promociones: %w", node, err)
	}
	defer rows.Close()

	out := []types.Promotion{}
	for rows.Next() {
		var (
			p  types.Promotion
			id int64
		)
		if err := rows.Scan(&id, &p.Code, &p.Description, &p.DiscountPercent, &p.CreatedAt, &p.City); err != nil {
			return nil, fmt.Errorf("scan %s promociones: %w", node, err)
		}
		p.ID = types.ID(fmt.Sprint(id))
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertPromotions inserts n generated promotions on origin and copies them,
// ids included, to every peer.
func (s *Store) InsertPromotions(ctx context.Context, origin string, peers []string, n int) ([]types.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.db(origin)
	if err != nil {
		return nil, err
	}
	created := s.timestamp()
	inserted := make([]types.Promotion, 0, n)
	for i := 0; i < n; i++ {
		p := types.Promotion{
			Code:            fmt.Sprintf("REP%s%03d", strings.ToUpper(origin), i+1),
			Description:     fmt.Sprintf("Promoción replicada %d desde %s", i+1, origin),
			DiscountPercent: 15.0 + float64(i)*1.5,
			CreatedAt:       created,
			City:            origin,
		}
		res, err := db.ExecContext(ctx, `INSERT INTO promociones (codigo_promo, descripcion, descuento_porcentaje, fecha_creacion, ciudad)
			VALUES (?, ?, ?, ?, ?)`, p.Code, p.Description, p.DiscountPercent, p.CreatedAt, p.City)
		if err != nil {
			return nil, fmt.Errorf("insert %s promocion: %w", origin, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		p.ID = types.ID(fmt.Sprint(id))

		for _, peer := range peers {
			pdb, err := s.db(peer)
			if err != nil {
				return nil, err
			}
			if _, err := pdb.ExecContext(ctx, `INSERT INTO promociones (promocion_id, codigo_promo, descripcion, descuento_porcentaje, fecha_creacion, ciudad)
				VALUES (?, ?, ?, ?, ?, ?)`, id, p.Code, p.Description, p.DiscountPercent, p.CreatedAt, p.City); err != nil {
				return nil, fmt.Errorf("replicate promocion to %s: %w", peer, err)
			}
		}
		inserted = append(inserted, p)
	}
	return inserted, nil
}

// Movies lists the peliculas_catalogo table on node.
func (s *Store) Movies(ctx context.Context, node string) ([]types.Movie, error) {
	db, err := s.db(node)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT pelicula_id, titulo, genero, clasificacion, director, sinopsis,
		url_poster, fecha_creacion FROM peliculas_catalogo ORDER BY pelicula_id`)
	if err != nil {
		return nil, fmt.Errorf("query %s peliculas: %w", node, err)
	}
	defer rows.Close()

	out := []types.Movie{}
	for rows.Next() {
		var (
			m  types.Movie
			id int64
		)
		if err := rows.Scan(&id, &m.Title, &m.Genre, &m.Rating, &m.Director, &m.Synopsis, &m.PosterURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s peliculas: %w", node, err)
		}
		m.ID = types.ID(fmt.Sprint(id))
		out = append(out, m)
	}
	return out, rows.Err()
}

var (
	movieGenres  = []string{"Acción", "Drama", "Comedia", "Terror", "Sci-Fi"}
	movieRatings = []string{"G", "PG", "PG-13", "R"}
)

// InsertMovies inserts n generated movies on origin and copies them to
// target, which assigns its own ids.
func (s *Store) InsertMovies(ctx context.Context, origin, target string, n int) ([]types.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.db(origin)
	if err != nil {
		return nil, err
	}
	tdb, err := s.db(target)
	if err != nil {
		return nil, err
	}

	created := s.timestamp()
	inserted := make([]types.Movie, 0, n)
	for i := 0; i < n; i++ {
		m := types.Movie{
			Title:     fmt.Sprintf("Película %s-%s %d", origin, target, i+1),
			Genre:     movieGenres[i%len(movieGenres)],
			Rating:    movieRatings[i%len(movieRatings)],
			Director:  fmt.Sprintf("Director %d", i+1),
			Synopsis:  fmt.Sprintf("Película de prueba para replicación %s → %s número %d", origin, target, i+1),
			PosterURL: fmt.Sprintf("https://ejemplo.com/poster_%d.jpg", i+1),
			CreatedAt: created,
		}
		const insert = `INSERT INTO peliculas_catalogo (titulo, genero, clasificacion, director, sinopsis, url_poster, fecha_creacion)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		res, err := db.ExecContext(ctx, insert, m.Title, m.Genre, m.Rating, m.Director, m.Synopsis, m.PosterURL, m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert %s pelicula: %w", origin, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		m.ID = types.ID(fmt.Sprint(id))

		if _, err := tdb.ExecContext(ctx, insert, m.Title, m.Genre, m.Rating, m.Director, m.Synopsis, m.PosterURL, m.CreatedAt); err != nil {
			return nil, fmt.Errorf("replicate pelicula to %s: %w", target, err)
		}
		inserted = append(inserted, m)
	}
	return inserted, nil
}

// sortByCreatedDesc orders clients newest first, then by id.
func sortByCreatedDesc(cs []types.Client) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].CreatedAt != cs[j].CreatedAt {
			return cs[i].CreatedAt > cs[j].CreatedAt
		}
		return cs[i].ID < cs[j].ID
	})
}
