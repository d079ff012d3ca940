// Package memory provides a map-backed VectorStore used by tests and local
// development. It honours the same contract as the remote backends:
// idempotent upserts, descending-score search, minScore cut-off.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	params driven.CollectionParams
	points map[string]*domain.Point
}

// Store is an in-memory VectorStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// Initialize prepares the store; a no-op for the in-memory backend.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, params driven.CollectionParams) error {
	if params.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &collection{
		params: params,
		points: make(map[string]*domain.Point),
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) UpsertPoints(ctx context.Context, name string, points []*domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return domain.ErrCollectionNotFound
	}

	for _, p := range points {
		if len(p.Vector) != coll.params.Dimension {
			return fmt.Errorf("%w: point %s has dimension %d, collection wants %d",
				domain.ErrInvalidInput, p.ID, len(p.Vector), coll.params.Dimension)
		}
		copied := *p
		coll.points[p.ID] = &copied
	}
	return nil
}

func (s *Store) GetPoint(ctx context.Context, name, id string) (*domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}
	p, ok := coll.points[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *Store) DeletePoint(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return domain.ErrCollectionNotFound
	}
	delete(coll.points, id)
	return nil
}

func (s *Store) DeleteByDocument(ctx context.Context, name string, documentID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return 0, domain.ErrCollectionNotFound
	}

	deleted := 0
	for id, p := range coll.points {
		if p.Payload.DocumentID == documentID {
			delete(coll.points, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) CountPoints(ctx context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return 0, domain.ErrCollectionNotFound
	}
	return int64(len(coll.points)), nil
}

func (s *Store) Search(ctx context.Context, name string, vector []float32, params driven.SearchParams) ([]*domain.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	var results []*domain.ScoredPoint
	for _, p := range coll.points {
		if params.Filter.DocumentID != 0 && p.Payload.DocumentID != params.Filter.DocumentID {
			continue
		}
		score := similarity(coll.params.Distance, vector, p.Vector)
		if params.MinScore > 0 && score < params.MinScore {
			continue
		}
		copied := *p
		results = append(results, &domain.ScoredPoint{Point: copied, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) Close() error {
	return nil
}

func similarity(distance driven.Distance, a, b []float32) float32 {
	switch distance {
	case driven.DistanceDot:
		return dot(a, b)
	case driven.DistanceEuclidean:
		// Negated distance so that higher is still better.
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(-math.Sqrt(sum))
	default: // cosine
		na := norm(a)
		nb := norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
