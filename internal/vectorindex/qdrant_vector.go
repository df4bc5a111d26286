package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadIDField stores the composite (entityType:entityID) string in the
// point payload, since Qdrant point IDs must be a UUID or a positive
// integer and our natural keys are neither.
const payloadIDField = "_entry_id"
const payloadEntityTypeField = "_entity_type"
const payloadEntityIDField = "_entity_id"

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string // cosine|l2|euclidean|ip|dot|manhattan
}

// NewQdrantIndex creates a Vector Index Entry store backed by Qdrant.
// dsn is a URL such as "http://localhost:6334?api_key=...".
func NewQdrantIndex(dsn string, collection string, dimensions int, metric string) (Index, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	parsedURL, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse Qdrant DSN: %w", err)
	}
	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsedURL.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in Qdrant DSN: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsedURL.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsedURL.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create Qdrant client: %w", err)
	}
	qi := &qdrantIndex{
		client:     client,
		collection: collection,
		dimension:  dimensions,
		metric:     strings.ToLower(strings.TrimSpace(metric)),
	}
	if err := qi.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return qi, nil
}

func (q *qdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default: // cosine, the metric for the wide-vector model's unit vectors
		distance = qdrant.Distance_Cosine
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

func pointUUID(entryID string) string {
	if _, err := uuid.Parse(entryID); err == nil {
		return entryID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entryID)).String()
}

func (q *qdrantIndex) Upsert(ctx context.Context, entityType, entityID string, vector []float32, filters map[string]string) error {
	entryID := compositeID(entityType, entityID)
	pointID := pointUUID(entryID)

	payload := make(map[string]any, len(filters)+3)
	for k, v := range filters {
		payload[k] = v
	}
	payload[payloadIDField] = entryID
	payload[payloadEntityTypeField] = entityType
	payload[payloadEntityIDField] = entityID

	vec := make([]float32, len(vector))
	copy(vec, vector)

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(pointID),
				Vectors: qdrant.NewVectorsDense(vec),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	return err
}

func (q *qdrantIndex) Delete(ctx context.Context, entityType, entityID string) error {
	pointID := pointUUID(compositeID(entityType, entityID))
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointID)),
	})
	return err
}

func (q *qdrantIndex) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	var queryFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		filters := make(map[string]string)
		var entityType, entityID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadIDField:
					// derived from entityType/entityID; skip.
				case payloadEntityTypeField:
					entityType = v.GetStringValue()
				case payloadEntityIDField:
					entityID = v.GetStringValue()
				default:
					filters[k] = v.GetStringValue()
				}
			}
		}
		results = append(results, SearchResult{
			EntityType: entityType,
			EntityID:   entityID,
			Score:      float64(hit.Score),
			Filters:    filters,
		})
	}
	return results, nil
}

func (q *qdrantIndex) Dimension() int { return q.dimension }

func (q *qdrantIndex) Close() error { return q.client.Close() }
