package driven

import (
	"context"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclidean Distance = "euclidean"
)

// CollectionParams describes a collection at creation time. All points in a
// collection share one dimensionality and one embedding model.
type CollectionParams struct {
	Dimension int
	Distance  Distance
}

// SearchFilter restricts a similarity search. Zero values mean "no filter".
type SearchFilter struct {
	// DocumentID limits results to points of one document.
	DocumentID int64
}

// SearchParams controls a similarity search.
type SearchParams struct {
	// Limit is the maximum number of points to return.
	Limit int

	// MinScore excludes points scoring below the threshold entirely rather
	// than flagging them. Zero disables the cut-off.
	MinScore float32

	// Filter restricts the candidate set.
	Filter SearchFilter
}

// VectorStore is the capability set implemented by every vector-store
// backend. The backend is selected once at process start and held as an
// explicit service with an Initialize/Close lifecycle; implementations must
// be safe for concurrent use by worker goroutines.
//
// UpsertPoints is the idempotency primitive of the pipeline: a second upsert
// with the same point ID replaces, never appends.
type VectorStore interface {
	// Initialize prepares the backend connection. Called once at startup.
	Initialize(ctx context.Context) error

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given parameters.
	CreateCollection(ctx context.Context, name string, params CollectionParams) error

	// DeleteCollection removes a collection and all its points.
	DeleteCollection(ctx context.Context, name string) error

	// UpsertPoints inserts or replaces points by ID.
	UpsertPoints(ctx context.Context, collection string, points []*domain.Point) error

	// GetPoint fetches a point by ID. Returns domain.ErrNotFound when absent.
	GetPoint(ctx context.Context, collection, id string) (*domain.Point, error)

	// DeletePoint removes a point by ID. Deleting an absent point is not an
	// error.
	DeletePoint(ctx context.Context, collection, id string) error

	// DeleteByDocument removes every point belonging to a document and
	// returns how many were removed. It must not depend on chunk indexes
	// being contiguous.
	DeleteByDocument(ctx context.Context, collection string, documentID int64) (int, error)

	// CountPoints returns the number of points in a collection.
	CountPoints(ctx context.Context, collection string) (int64, error)

	// Search returns the most similar points, sorted by descending score.
	Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]*domain.ScoredPoint, error)

	// Close releases the backend connection. Called once at shutdown.
	Close() error
}
