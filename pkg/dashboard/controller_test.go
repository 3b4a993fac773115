package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/salahayoub/distdash/pkg/backend"
	"github.com/salahayoub/distdash/pkg/clock"
	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/oplog"
	"github.com/salahayoub/distdash/pkg/types"
	"github.com/salahayoub/distdash/pkg/view"
)

var epoch = time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC)

// mockClient is a scripted backend.Client.
type mockClient struct {
	mu        sync.Mutex
	employees func(call int) ([]types.Employee, error)
	clients   func(call int) ([]types.Client, error)
	do        func(method, path string, query url.Values) (json.RawMessage, error)
	empCalls  int
	cliCalls  int
	requests  []string
}

func (m *mockClient) Employees(ctx context.Context) ([]types.Employee, error) {
	m.mu.Lock()
	m.empCalls++
	n := m.empCalls
	m.mu.Unlock()
	return m.employees(n)
}

func (m *mockClient) Clients(ctx context.Context) ([]types.Client, error) {
	m.mu.Lock()
	m.cliCalls++
	n := m.cliCalls
	m.mu.Unlock()
	return m.clients(n)
}

func (m *mockClient) Do(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	m.mu.Lock()
	m.requests = append(m.requests, method+" "+path+"?"+query.Encode())
	m.mu.Unlock()
	return m.do(method, path, query)
}

func newTestController(t *testing.T, client backend.Client, opts ...Option) (*Controller, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(epoch)
	opts = append([]Option{WithScheduler(fake), WithLogger(logging.Discard())}, opts...)
	c := New(client, opts...)
	t.Cleanup(c.Close)
	return c, fake
}

const promotionsEvidence = `{
  "evidencia_replicacion_bidireccional": {
    "1_estado_antes": {"promociones_guayaquil": [{"promocion_id": 1, "codigo_promo": "GYE10"}]},
    "2_insercion": {"nodo": "Guayaquil"},
    "3_estado_despues": {"promociones_guayaquil": [
      {"promocion_id": 1, "codigo_promo": "GYE10"},
      {"promocion_id": 2, "codigo_promo": "GYE20", "descuento_porcentaje": 20}
    ]}
  }
}`

const moviesEvidence = `{
  "tablas_antes": {"cuenca_peliculas": []},
  "tablas_despues": {"cuenca_peliculas": [{"pelicula_id": 9, "titulo": "Ratatouille"}]}
}`

func TestClassify(t *testing.T) {
	tests := []struct {
		origin, destination string
		category            string
		description         string
	}{
		{"Guayaquil", "Quito", CategoryBidirectional, "Promociones Guayaquil → Quito (sincronización en ambos sentidos)"},
		{"Quito", "Guayaquil", CategoryBidirectional, "Promociones Quito → Guayaquil (sincronización en ambos sentidos)"},
		{"Cuenca", "Quito", CategoryUnidirectional, "Promociones Cuenca → Quito"},
		{"Quito", "Cuenca", CategoryUnidirectional, "Promociones Quito → Cuenca"},
		{"Quito", "Quito", CategoryUnidirectional, "Promociones Quito → Quito"},
		{"quito", "GUAYAQUIL", CategoryBidirectional, "Promociones quito → GUAYAQUIL (sincronización en ambos sentidos)"},
	}
	for _, tt := range tests {
		cat, desc := Classify(tt.origin, tt.destination)
		if cat != tt.category || desc != tt.description {
			t.Errorf("Classify(%s, %s) = (%q, %q), want (%q, %q)",
				tt.origin, tt.destination, cat, desc, tt.category, tt.description)
		}
	}
}

// TestVerticalTwiceLogsOnce invokes the vertical handler twice: one log
// entry, and the second response wins.
func TestVerticalTwiceLogsOnce(t *testing.T) {
	client := &mockClient{
		employees: func(call int) ([]types.Employee, error) {
			if call == 1 {
				return []types.Employee{{ID: "1", FirstName: "Ana"}}, nil
			}
			return []types.Employee{{ID: "1", FirstName: "Ana María"}}, nil
		},
	}
	c, _ := newTestController(t, client)

	if err := c.FragmentVertical(context.Background()); err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if err := c.FragmentVertical(context.Background()); err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	ops := c.Log().List()
	if len(ops) != 1 {
		t.Fatalf("Expected exactly 1 operation, got %d", len(ops))
	}
	if ops[0].Category != CategoryVertical || ops[0].Description != "Fragmentación de la tabla empleados por atributos" {
		t.Errorf("Unexpected operation: %+v", ops[0])
	}
	st := c.View().Snapshot()
	if st.Kind != view.KindEmployees || st.Employees[0].FirstName != "Ana María" {
		t.Errorf("Expected second response in view, got %+v", st.Employees)
	}
}

func TestHorizontalLogsOnceAndFetchesClients(t *testing.T) {
	client := &mockClient{
		clients: func(call int) ([]types.Client, error) {
			return []types.Client{{ID: "UIO-1", RegistrationCity: "Quito"}}, nil
		},
	}
	c, _ := newTestController(t, client)

	for i := 0; i < 3; i++ {
		if err := c.Trigger(context.Background(), ActionHorizontal); err != nil {
			t.Fatalf("Trigger failed: %v", err)
		}
	}
	if client.cliCalls != 3 {
		t.Errorf("Expected 3 fetches, got %d", client.cliCalls)
	}
	ops := c.Log().List()
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation, got %d", len(ops))
	}
	wantDetail := "Clientes Quito → Nodo Quito\nClientes Guayaquil → Nodo Guayaquil\nClientes Cuenca → Nodo Cuenca"
	if ops[0].Detail != wantDetail {
		t.Errorf("Unexpected detail %q", ops[0].Detail)
	}
	if !c.View().Renders(view.KindClients) {
		t.Error("Clients view should render")
	}
}

func TestFragmentFailureKeepsView(t *testing.T) {
	client := &mockClient{
		employees: func(int) ([]types.Employee, error) {
			return []types.Employee{{ID: "1"}}, nil
		},
		clients: func(int) ([]types.Client, error) {
			return nil, &backend.ResponseError{Status: 500}
		},
	}
	c, _ := newTestController(t, client)
	c.FragmentVertical(context.Background())

	err := c.FragmentHorizontal(context.Background())
	var re *backend.ResponseError
	if !errors.As(err, &re) {
		t.Fatalf("Expected ResponseError, got %v", err)
	}
	st := c.View().Snapshot()
	if st.Kind != view.KindEmployees || len(st.Employees) != 1 {
		t.Errorf("Failed fetch must leave view intact: %+v", st)
	}
	if st.LastError == nil || st.LastError.Kind != view.KindClients {
		t.Errorf("Expected LastError for clients, got %+v", st.LastError)
	}
	// The guard is set before the fetch, so the entry is still logged.
	if c.Log().Len() != 2 {
		t.Errorf("Expected 2 operations, got %d", c.Log().Len())
	}
}

func TestReplicatePromotions(t *testing.T) {
	client := &mockClient{
		do: func(method, path string, q url.Values) (json.RawMessage, error) {
			return json.RawMessage(promotionsEvidence), nil
		},
	}
	c, _ := newTestController(t, client)

	if err := c.Trigger(context.Background(), "promociones-guayaquil-quito"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	want := "POST /replicacion-bidireccional?cantidad_registros=1&nodo_para_insertar=Guayaquil"
	if len(client.requests) != 1 || client.requests[0] != want {
		t.Errorf("Unexpected request %v, want %s", client.requests, want)
	}

	st := c.View().Snapshot()
	if st.Kind != view.KindPromotions || !st.PairedVisible {
		t.Fatalf("Expected paired promotions view, got %+v", st)
	}
	if len(st.PromotionsBefore) != 1 || len(st.PromotionsAfter) != 2 {
		t.Errorf("Unexpected snapshot sizes: %d/%d", len(st.PromotionsBefore), len(st.PromotionsAfter))
	}
	if st.PromotionsAfter[1].Code != "GYE20" || st.PromotionsAfter[1].DiscountPercent != 20 {
		t.Errorf("Unexpected promotion: %+v", st.PromotionsAfter[1])
	}
	if st.BeforeTitle != "Promociones Guayaquil (antes)" {
		t.Errorf("Unexpected title %q", st.BeforeTitle)
	}

	ops := c.Log().List()
	if len(ops) != 1 || ops[0].Category != CategoryBidirectional {
		t.Fatalf("Expected one bidirectional operation, got %+v", ops)
	}
	if ops[0].Description != "Promociones Guayaquil → Quito (sincronización en ambos sentidos)" {
		t.Errorf("Unexpected description %q", ops[0].Description)
	}
}

func TestReplicateMovies(t *testing.T) {
	client := &mockClient{
		do: func(method, path string, q url.Values) (json.RawMessage, error) {
			if path != backend.PathGuayaquilCuenca || q.Get("cantidad") != "1" {
				t.Errorf("Unexpected request %s %s", path, q.Encode())
			}
			return json.RawMessage(moviesEvidence), nil
		},
	}
	c, _ := newTestController(t, client)

	if err := c.Trigger(context.Background(), "peliculas-guayaquil-cuenca"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	st := c.View().Snapshot()
	if !st.Renders(view.KindMovies) || len(st.MoviesBefore) != 0 || st.MoviesAfter[0].Title != "Ratatouille" {
		t.Errorf("Unexpected movies view: %+v", st)
	}
	op := c.Log().List()[0]
	if op.Category != CategoryUnidirectional || op.Description != "Películas Guayaquil → Cuenca" {
		t.Errorf("Unexpected operation %+v", op)
	}
	if op.Detail != "Registros antes: 0\nRegistros después: 1" {
		t.Errorf("Unexpected detail %q", op.Detail)
	}
}

// TestReplicateServerErrorLeavesState covers the HTTP 500 scenario.
func TestReplicateServerErrorLeavesState(t *testing.T) {
	client := &mockClient{
		employees: func(int) ([]types.Employee, error) {
			return []types.Employee{{ID: "1", FirstName: "Ana"}}, nil
		},
		do: func(string, string, url.Values) (json.RawMessage, error) {
			return nil, &backend.ResponseError{Status: http.StatusInternalServerError, Body: "boom"}
		},
	}
	c, _ := newTestController(t, client)
	c.FragmentVertical(context.Background())
	before := c.View().Snapshot()
	opsBefore := c.Log().Len()

	err := c.Trigger(context.Background(), "promociones-quito-guayaquil")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if c.Log().Len() != opsBefore {
		t.Errorf("Failed replication must not log, have %d operations", c.Log().Len())
	}
	after := c.View().Snapshot()
	after.LastError = nil
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Buffers changed on failure:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestReplicateMissingKey(t *testing.T) {
	client := &mockClient{
		do: func(string, string, url.Values) (json.RawMessage, error) {
			return json.RawMessage(`{"tablas_antes": {"cuenca_peliculas": []}}`), nil
		},
	}
	c, _ := newTestController(t, client)

	err := c.Trigger(context.Background(), "peliculas-quito-cuenca")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Expected ErrMissingKey, got %v", err)
	}
	if c.Log().Len() != 0 {
		t.Error("No operation should be logged")
	}
	if c.View().Snapshot().Kind != view.KindNone {
		t.Error("View should be untouched")
	}
}

func TestReplicateSimulatesSync(t *testing.T) {
	client := &mockClient{
		do: func(string, string, url.Values) (json.RawMessage, error) {
			return json.RawMessage(moviesEvidence), nil
		},
	}
	c, fake := newTestController(t, client)

	c.Trigger(context.Background(), "peliculas-quito-cuenca")
	if n, _ := c.Nodes().Get(nodes.Cuenca); n.Status != nodes.StatusSyncing {
		t.Fatalf("Expected Cuenca syncing, got %s", n.Status)
	}
	fake.Advance(nodes.SyncDelay)
	if n, _ := c.Nodes().Get(nodes.Cuenca); n.Status != nodes.StatusOnline {
		t.Fatalf("Expected Cuenca online, got %s", n.Status)
	}
}

func TestSimulateSyncDisabled(t *testing.T) {
	client := &mockClient{
		do: func(string, string, url.Values) (json.RawMessage, error) {
			return json.RawMessage(moviesEvidence), nil
		},
	}
	c, _ := newTestController(t, client, WithSimulateSync(false))

	c.Trigger(context.Background(), "peliculas-quito-cuenca")
	if n, _ := c.Nodes().Get(nodes.Cuenca); n.Status != nodes.StatusOnline {
		t.Errorf("Simulation disabled: expected online, got %s", n.Status)
	}
}

func TestSimulateOnlyCatalogRoute(t *testing.T) {
	client := &mockClient{
		do: func(string, string, url.Values) (json.RawMessage, error) {
			t.Error("Simulate-only route must not call the backend")
			return nil, nil
		},
	}
	c, fake := newTestController(t, client, WithSimulateSync(false))

	if err := c.Trigger(context.Background(), "catalogo-cuenca-guayaquil"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	op := c.Log().List()[0]
	if op.Category != "Réplica Cuenca a Guayaquil" {
		t.Errorf("Unexpected category %q", op.Category)
	}
	if op.Description != "Replicando datos desde Cuenca (Oracle 21c) hacia Guayaquil (PostgreSQL 17)" {
		t.Errorf("Unexpected description %q", op.Description)
	}
	if op.Detail != "Sincronizando tablas: PELICULAS, CLIENTES, ALQUILERES\nRegistros replicados: 1250" {
		t.Errorf("Unexpected detail %q", op.Detail)
	}
	if n, _ := c.Nodes().Get(nodes.Guayaquil); n.Status != nodes.StatusSyncing {
		t.Errorf("Simulate-only route always syncs, got %s", n.Status)
	}
	fake.Advance(oplog.CompletionDelay)
	if c.Log().List()[0].Status != oplog.StatusCompleted {
		t.Error("Operation should complete after 2s")
	}
}

// TestOverlappingCallsLastResolvedWins issues two clients fetches where the
// first-issued call resolves last.
func TestOverlappingCallsLastResolvedWins(t *testing.T) {
	releaseFirst := make(chan struct{})
	secondDone := make(chan struct{})
	client := &mockClient{
		clients: func(call int) ([]types.Client, error) {
			if call == 1 {
				<-releaseFirst
				return []types.Client{{ID: "first"}}, nil
			}
			return []types.Client{{ID: "second"}}, nil
		},
	}
	c, _ := newTestController(t, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.FragmentHorizontal(context.Background())
	}()

	// Wait for the first call to reach the backend before issuing the second.
	for {
		client.mu.Lock()
		n := client.cliCalls
		client.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	go func() {
		c.FragmentHorizontal(context.Background())
		close(secondDone)
	}()
	<-secondDone
	if got := c.View().Snapshot().Clients[0].ID; got != "second" {
		t.Fatalf("Expected second response first, got %s", got)
	}

	close(releaseFirst)
	wg.Wait()
	if got := c.View().Snapshot().Clients[0].ID; got != "first" {
		t.Errorf("Expected last-resolved (first-issued) response, got %s", got)
	}
}

func TestTriggerUnknownAction(t *testing.T) {
	c, _ := newTestController(t, &mockClient{})
	if err := c.Trigger(context.Background(), "nope"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestActionsInButtonOrder(t *testing.T) {
	c, _ := newTestController(t, &mockClient{})
	want := []string{
		ActionHorizontal, ActionVertical,
		"promociones-guayaquil-quito", "promociones-quito-guayaquil",
		"catalogo-cuenca-quito", "catalogo-cuenca-guayaquil",
		"peliculas-quito-cuenca", "peliculas-guayaquil-cuenca",
	}
	actions := c.Actions()
	if len(actions) != len(want) {
		t.Fatalf("Expected %d actions, got %d", len(want), len(actions))
	}
	for i, a := range actions {
		if a.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], a.ID)
		}
	}
	if actions[2].Title != "Promociones: Guayaquil → Quito" || actions[2].Variant != VariantReplication {
		t.Errorf("Unexpected action %+v", actions[2])
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	client := &mockClient{
		clients: func(int) ([]types.Client, error) { return []types.Client{{ID: "1"}}, nil },
	}
	c, fake := newTestController(t, client)
	ch, cancel := c.Subscribe()
	defer cancel()

	c.FragmentHorizontal(context.Background())
	select {
	case <-ch:
	default:
		t.Fatal("Expected a notification")
	}
	select {
	case <-ch:
		t.Fatal("Notifications should coalesce into one pending signal")
	default:
	}

	cancel()
	fake.Advance(oplog.CompletionDelay)
	select {
	case <-ch:
		t.Error("Cancelled subscription must not receive")
	default:
	}
}

func TestStateSnapshot(t *testing.T) {
	client := &mockClient{
		employees: func(int) ([]types.Employee, error) { return []types.Employee{{ID: "1"}}, nil },
	}
	c, _ := newTestController(t, client)
	if c.State().LogVisible {
		t.Error("Log should start hidden")
	}
	c.FragmentVertical(context.Background())

	st := c.State()
	if !st.LogVisible || len(st.Operations) != 1 || len(st.Nodes) != 3 || st.View.Kind != view.KindEmployees {
		t.Errorf("Unexpected state %+v", st)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	client := &mockClient{
		do: func(string, string, url.Values) (json.RawMessage, error) {
			return json.RawMessage(promotionsEvidence), nil
		},
	}
	fake := clock.NewFake(epoch)
	c := New(client, WithScheduler(fake), WithLogger(logging.Discard()))
	c.Trigger(context.Background(), "promociones-guayaquil-quito")
	c.Close()

	if fake.Pending() != 0 {
		t.Errorf("Expected no pending timers after Close, got %d", fake.Pending())
	}
}

func TestExtract(t *testing.T) {
	raw := json.RawMessage(`{"a": {"b": [1, 2]}, "s": "x"}`)
	var got []int
	if err := Extract(raw, "a.b", &got); err != nil || len(got) != 2 {
		t.Errorf("Extract a.b = %v, %v", got, err)
	}
	if err := Extract(raw, "a.c", &got); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Expected ErrMissingKey, got %v", err)
	}
	if err := Extract(raw, "s.x", &got); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Expected ErrMissingKey through a non-object, got %v", err)
	}
	var wrong []int
	if err := Extract(raw, "s", &wrong); err == nil || errors.Is(err, ErrMissingKey) {
		t.Errorf("Expected a decode error, got %v", err)
	}
}

func TestRouteRequestExpansion(t *testing.T) {
	r, ok := New(&mockClient{}, WithLogger(logging.Discard())).Route("promociones-quito-guayaquil")
	if !ok {
		t.Fatal("Route not found")
	}
	method, path, q := r.Request()
	if method != http.MethodPost || path != backend.PathBidirectional {
		t.Errorf("Unexpected %s %s", method, path)
	}
	if q.Get("nodo_para_insertar") != "Quito" || q.Get("cantidad_registros") != "1" {
		t.Errorf("Unexpected query %s", q.Encode())
	}
	before, after := r.Keys()
	if before != "evidencia_replicacion_bidireccional.1_estado_antes.promociones_quito" ||
		after != "evidencia_replicacion_bidireccional.3_estado_despues.promociones_quito" {
		t.Errorf("Unexpected keys %s / %s", before, after)
	}
}
