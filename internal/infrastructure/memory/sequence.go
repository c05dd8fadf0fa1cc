package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
)

// ReferenceSequence consecutivos diarios por (prefijo, tenant) en memoria.
type ReferenceSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewReferenceSequence crea el generador.
func NewReferenceSequence() *ReferenceSequence {
	return &ReferenceSequence{counters: map[string]int64{}}
}

// Next devuelve PREFIJO-YYYYMMDD-NNNNNN.
func (s *ReferenceSequence) Next(_ context.Context, scope, prefix string, at time.Time) (string, error) {
	key := prefix + ":" + scope + ":" + at.UTC().Format("20060102")
	s.mu.Lock()
	s.counters[key]++
	n := s.counters[key]
	s.mu.Unlock()
	return stock.FormatReference(prefix, at, n), nil
}
