package simbackend

import (
	"context"
	"fmt"

	"github.com/salahayoub/distdash/pkg/nodes"
)

type seedClient struct {
	id                              int
	first, last, email, phone, addr string
	created                         string
}

// Clients are fragmented horizontally by registration city.
var seedClients = map[string][]seedClient{
	nodes.Quito: {
		{1, "María", "Andrade", "maria.andrade@correo.ec", "0991234567", "Av. Amazonas N24-03", "2024-03-02 09:15:00"},
		{2, "Luis", "Ponce", "luis.ponce@correo.ec", "0987654321", "Calle Guayasamín 112", "2024-04-11 16:40:00"},
		{3, "Daniela", "Vaca", "daniela.vaca@correo.ec", "0974455667", "Av. 6 de Diciembre 3321", "2024-06-20 11:05:00"},
	},
	nodes.Guayaquil: {
		{101, "Jorge", "Macías", "jorge.macias@correo.ec", "0968877665", "Malecón 2000 Local 5", "2024-02-14 10:30:00"},
		{102, "Andrea", "Cedeño", "andrea.cedeno@correo.ec", "0953322114", "Av. 9 de Octubre 800", "2024-05-07 14:20:00"},
	},
	nodes.Cuenca: {
		{201, "Pablo", "Ordóñez", "pablo.ordonez@correo.ec", "0946655443", "Calle Larga 7-45", "2024-01-28 08:50:00"},
		{202, "Carla", "Peña", "carla.pena@correo.ec", "0939988776", "Av. Solano 2-18", "2024-07-03 17:10:00"},
	},
}

type seedEmployee struct {
	id                int
	first, last, role string
	city              string
	salary            float64
	hired, contact    string
}

// Employees are fragmented vertically: identity columns live in Quito, the
// rest in Guayaquil.
var seedEmployees = []seedEmployee{
	{1, "Ana", "Torres", "Gerente", "Quito", 1850.00, "2021-02-01", "0991112233"},
	{2, "Carlos", "Mena", "Cajero", "Quito", 620.50, "2022-08-15", "0984445566"},
	{3, "Lucía", "Zambrano", "Supervisora", "Guayaquil", 1100.00, "2020-11-03", "0977778899"},
	{4, "Diego", "Sarmiento", "Técnico", "Cuenca", 780.00, "2023-05-22", "0961239876"},
}

type seedPromotion struct {
	code, desc string
	discount   float64
	city       string
}

// Promotions are replicated between Quito and Guayaquil.
var seedPromotions = []seedPromotion{
	{"VERANO25", "Descuento de verano en estrenos", 25, "Quito"},
	{"FAMILIA10", "Plan familiar de fin de semana", 10, "Guayaquil"},
	{"ESTUDIANTE15", "Tarifa estudiantil", 15, "Quito"},
}

type seedMovie struct {
	title, genre, rating, director, synopsis string
}

var seedMovies = map[string][]seedMovie{
	nodes.Quito: {
		{"La Mitad del Mundo", "Drama", "PG", "Sebastián Cordero", "Una familia cruza el ecuador en busca de respuestas."},
		{"Ruta Andina", "Acción", "PG-13", "Tania Hermida", "Persecución a través de los páramos."},
	},
	nodes.Guayaquil: {
		{"Puerto Santa Ana", "Comedia", "G", "Javier Andrade", "Un vendedor del malecón se vuelve famoso por accidente."},
	},
	nodes.Cuenca: {
		{"El Tranvía", "Drama", "PG", "Iván Mora", "Historias cruzadas en el centro histórico."},
		{"Noche en el Cajas", "Terror", "R", "Ana Cristina Barragán", "Excursionistas atrapados por la niebla."},
	},
}

// seed loads the demo rows into every node.
func (s *Store) seed(ctx context.Context) error {
	for node, clients := range seedClients {
		db, err := s.db(node)
		if err != nil {
			return err
		}
		for _, c := range clients {
			if _, err := db.ExecContext(ctx, `INSERT INTO clientes (cliente_id, nombre, apellido, email, telefono, direccion, ciudad_registro, fecha_creacion)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, c.id, c.first, c.last, c.email, c.phone, c.addr, node, c.created); err != nil {
				return fmt.Errorf("seed %s clientes: %w", node, err)
			}
		}
	}

	quito, _ := s.db(nodes.Quito)
	gye, _ := s.db(nodes.Guayaquil)
	for _, e := range seedEmployees {
		if _, err := quito.ExecContext(ctx, `INSERT INTO empleados (empleado_id, nombre, apellido, cargo) VALUES (?, ?, ?, ?)`,
			e.id, e.first, e.last, e.role); err != nil {
			return fmt.Errorf("seed quito empleados: %w", err)
		}
		if _, err := gye.ExecContext(ctx, `INSERT INTO empleados (empleado_id, ciudad_tienda, salario, fecha_contratacion, contacto_emergencia) VALUES (?, ?, ?, ?, ?)`,
			e.id, e.city, e.salary, e.hired, e.contact); err != nil {
			return fmt.Errorf("seed guayaquil empleados: %w", err)
		}
	}

	created := s.timestamp()
	for _, node := range []string{nodes.Quito, nodes.Guayaquil} {
		db, _ := s.db(node)
		for _, p := range seedPromotions {
			if _, err := db.ExecContext(ctx, `INSERT INTO promociones (codigo_promo, descripcion, descuento_porcentaje, fecha_creacion, ciudad)
				VALUES (?, ?, ?, ?, ?)`, p.code, p.desc, p.discount, created, p.city); err != nil {
				return fmt.Errorf("seed %s promociones: %w", node, err)
			}
		}
	}

	for node, movies := range seedMovies {
		db, err := s.db(node)
		if err != nil {
			return err
		}
		for i, m := range movies {
			if _, err := db.ExecContext(ctx, `INSERT INTO peliculas_catalogo (titulo, genero, clasificacion, director, sinopsis, url_poster, fecha_creacion)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, m.title, m.genre, m.rating, m.director, m.synopsis,
				fmt.Sprintf("https://ejemplo.com/catalogo_%s_%d.jpg", node, i+1), created); err != nil {
				return fmt.Errorf("seed %s peliculas: %w", node, err)
			}
		}
	}
	return nil
}
