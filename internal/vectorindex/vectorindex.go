// Package vectorindex adapts Qdrant into the narrow VectorIndex port the
// ingestion pipeline and search orchestrator consume.
package vectorindex

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// payloadIDField stashes the caller's original chunk id in the payload,
// since Qdrant point ids must be a UUID or unsigned integer.
const payloadIDField = "_original_id"

// Point is one chunk to upsert: an opaque id, its embedding, and a
// payload carrying the chunk text plus document metadata.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Filter is an AND of equality predicates over a fixed key set.
type Filter struct {
	Domain   string
	Language string
	Country  string
	IsMobile *bool
}

func (f Filter) empty() bool {
	return f.Domain == "" && f.Language == "" && f.Country == "" && f.IsMobile == nil
}

// Hit is one scored result from Search.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Index is the VectorIndex port.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) bool
}

// Qdrant is the gRPC-backed Index implementation.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrant parses dsn as a URL (scheme://host[:port], with an optional
// api_key query param; https enables TLS, a missing host defaults to
// localhost and a missing port to 6334) and constructs a client against
// the given collection and dimension. A bare host:port without a scheme
// is not parsed as a host. The
// collection is not created here; call EnsureCollection explicitly.
func NewQdrant(dsn, collection string, dimension int) (*Qdrant, error) {
	if collection == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "qdrant collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "parse qdrant dsn", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid port in qdrant dsn", err)
	}

	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "create qdrant client", err)
	}
	return &Qdrant{client: client, collection: collection, dimension: dimension}, nil
}

// EnsureCollection is idempotent: it creates the collection with cosine
// distance and the configured dimension if it does not already exist.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientRemote, "check qdrant collection exists", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return apperr.New(apperr.KindInvalidInput, "vector dimension must be > 0")
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindTransientRemote, "create qdrant collection", err)
	}
	return nil
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// Upsert writes points atomically: all points from one call succeed or
// fail together, as they are a single Qdrant upsert request.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != q.dimension {
			return apperr.New(apperr.KindPermanentRemote, "vector dimension mismatch on upsert")
		}
		uuidStr := pointUUID(p.ID)
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		if uuidStr != p.ID {
			payload[payloadIDField] = p.ID
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         qPoints,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindTransientRemote, "qdrant upsert failed", err)
	}
	return nil
}

func buildFilter(f Filter) *qdrant.Filter {
	if f.empty() {
		return nil
	}
	var must []*qdrant.Condition
	if f.Domain != "" {
		must = append(must, qdrant.NewMatch("domain", f.Domain))
	}
	if f.Language != "" {
		must = append(must, qdrant.NewMatch("language", f.Language))
	}
	if f.Country != "" {
		must = append(must, qdrant.NewMatch("country", f.Country))
	}
	if f.IsMobile != nil {
		must = append(must, qdrant.NewMatchBool("is_mobile", *f.IsMobile))
	}
	return &qdrant.Filter{Must: must}
}

// Search returns up to limit results ordered by descending score.
func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	lim := uint64(limit)

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &lim,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "qdrant search failed", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id := r.Id.GetUuid()
		if id == "" {
			id = r.Id.String()
		}
		payload := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			if k == payloadIDField {
				id = v.GetStringValue()
				continue
			}
			payload[k] = valueOf(v)
		}
		hits = append(hits, Hit{ID: id, Score: float64(r.Score), Payload: payload})
	}
	return hits, nil
}

func valueOf(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	default:
		return v.GetStringValue()
	}
}

// Count returns the total number of points in the collection.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	res, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.collection})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransientRemote, "qdrant count failed", err)
	}
	return int(res), nil
}

// HealthCheck never throws: any error is reported as unhealthy. Probing
// via CollectionExists exercises the same gRPC channel a real query would
// use without requiring a dedicated health RPC.
func (q *Qdrant) HealthCheck(ctx context.Context) bool {
	_, err := q.client.CollectionExists(ctx, q.collection)
	return err == nil
}

// Close releases the gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}
