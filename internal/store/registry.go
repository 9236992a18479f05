// Package store provee el registry de adapters SQL y el scope de conexión por request.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/feuc/declaraciones/internal/domain/repository"
)

// DataAccess agrupa los repositorios del portal.
type DataAccess interface {
	Persons() repository.PersonRepository
	Organizations() repository.OrganizationRepository
	Statements() repository.StatementRepository
}

// Scope es un DataAccess ligado a una única conexión del pool.
// Release devuelve la conexión; llamarlo más de una vez es seguro.
type Scope interface {
	DataAccess
	Release() error
}

// Adapter representa un driver de base de datos registrado.
type Adapter interface {
	// Name retorna el nombre del adapter ("postgres", "sqlite").
	Name() string
	// Connect abre el pool y verifica la conexión.
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es un pool abierto.
// Los repositorios de la conexión usan el pool completo; Acquire reserva
// una conexión dedicada para un request.
type Connection interface {
	DataAccess

	Name() string
	Acquire(ctx context.Context) (Scope, error)
	Migrate(ctx context.Context) (*MigrationResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "sqlite"
	Name string
	DSN  string

	MaxOpenConns int
	MaxIdleConns int
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión usando el adapter indicado en cfg.Name.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
