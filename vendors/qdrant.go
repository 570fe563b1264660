package vendors

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/config"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// embeddingSize matches text-embedding-ada-002
const embeddingSize = 1536

var (
	qdrantClient     *QdrantClient
	qdrantClientOnce sync.Once
	qdrantLogger     = log.GetLogger("Qdrant")
)

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QdrantConfig holds connection settings
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
}

// QdrantClient stores reviewed check verdicts as reference examples
type QdrantClient struct {
	client     *qdrant.Client
	collection string
}

// GetQdrantClient returns the singleton Qdrant client, or nil when disabled
func GetQdrantClient() *QdrantClient {
	qdrantClientOnce.Do(func() {
		cfg := config.Get()
		if cfg.QdrantHost == "" {
			qdrantLogger.Warn().Msg("QDRANT_HOST not configured, reference examples disabled")
			return
		}

		c, err := NewQdrantClient(context.Background(), QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			qdrantLogger.Error().Err(err).Msg("failed to initialize Qdrant")
			return
		}
		qdrantClient = c
		qdrantLogger.Info().Str("host", cfg.QdrantHost).Str("collection", cfg.QdrantCollection).Msg("Qdrant initialized")
	})

	return qdrantClient
}

// NewQdrantClient connects and ensures the collection exists
func NewQdrantClient(ctx context.Context, cfg QdrantConfig) (*QdrantClient, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   strings.TrimSuffix(cfg.Host, "/"),
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.APIKey != "",
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     embeddingSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
		qdrantLogger.Info().Str("collection", cfg.Collection).Msg("created Qdrant collection")
	}

	return &QdrantClient{client: client, collection: cfg.Collection}, nil
}

// Search returns up to limit examples for checkID nearest to vector
func (q *QdrantClient) Search(ctx context.Context, checkID string, vector []float32, limit int) ([]assessment.Example, error) {
	if q == nil {
		return nil, ErrDisabled
	}

	n := uint64(limit)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayloadInclude("checkId", "status", "quote", "comment"),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{checkIDCondition(checkID)},
		},
	})
	if err != nil {
		return nil, err
	}

	examples := make([]assessment.Example, 0, len(points))
	for _, point := range points {
		examples = append(examples, exampleFromPayload(checkID, point.Payload))
	}
	return examples, nil
}

// Upsert stores a reviewed example with its embedding
func (q *QdrantClient) Upsert(ctx context.Context, ex assessment.Example, vector []float32) error {
	if q == nil {
		return ErrDisabled
	}

	// Stable id so re-promoting the same quote overwrites it
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(ex.CheckID+"\x00"+ex.Quote)).String()

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectorsDense(vector),
				Payload: qdrant.NewValueMap(map[string]any{
					"checkId": ex.CheckID,
					"status":  string(ex.Status),
					"quote":   ex.Quote,
					"comment": ex.Comment,
				}),
			},
		},
	})
	return err
}

func checkIDCondition(checkID string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: "checkId",
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: checkID},
				},
			},
		},
	}
}

func exampleFromPayload(checkID string, payload map[string]*qdrant.Value) assessment.Example {
	ex := assessment.Example{CheckID: checkID}
	if v, ok := payload["status"]; ok {
		if s, ok := assessment.ParseStatus(v.GetStringValue()); ok {
			ex.Status = s
		}
	}
	if v, ok := payload["quote"]; ok {
		ex.Quote = v.GetStringValue()
	}
	if v, ok := payload["comment"]; ok {
		ex.Comment = v.GetStringValue()
	}
	return ex
}

// exampleStore is the part of QdrantClient the knowledge base needs
type exampleStore interface {
	Search(ctx context.Context, checkID string, vector []float32, limit int) ([]assessment.Example, error)
	Upsert(ctx context.Context, ex assessment.Example, vector []float32) error
}

// KnowledgeBase retrieves reviewed examples for each check by embedding the
// check's question. It implements assessment.ExampleSource.
type KnowledgeBase struct {
	store     exampleStore
	embedder  Embedder
	questions map[string]string
	perCheck  int
}

// NewKnowledgeBase returns nil when either backend is missing, which leaves
// prompts without examples
func NewKnowledgeBase(store *QdrantClient, embedder *OpenAIClient, questions map[string]string, perCheck int) *KnowledgeBase {
	if store == nil || embedder == nil {
		return nil
	}
	return newKnowledgeBase(store, embedder, questions, perCheck)
}

func newKnowledgeBase(store exampleStore, embedder Embedder, questions map[string]string, perCheck int) *KnowledgeBase {
	if perCheck <= 0 {
		perCheck = 1
	}
	return &KnowledgeBase{store: store, embedder: embedder, questions: questions, perCheck: perCheck}
}

// Examples returns up to perCheck examples per check id
func (kb *KnowledgeBase) Examples(ctx context.Context, checkIDs []string) (map[string][]assessment.Example, error) {
	if kb == nil {
		return nil, nil
	}

	texts := make([]string, len(checkIDs))
	for i, id := range checkIDs {
		texts[i] = kb.question(id)
	}
	vectors, err := kb.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed checks: %w", err)
	}

	out := make(map[string][]assessment.Example, len(checkIDs))
	for i, id := range checkIDs {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		examples, err := kb.store.Search(ctx, id, vectors[i], kb.perCheck)
		if err != nil {
			return nil, fmt.Errorf("search examples for %s: %w", id, err)
		}
		if len(examples) > 0 {
			out[id] = examples
		}
	}
	return out, nil
}

// Promote stores a reviewed verdict as a reference example
func (kb *KnowledgeBase) Promote(ctx context.Context, ex assessment.Example) error {
	if kb == nil {
		return ErrDisabled
	}
	vectors, err := kb.embedder.Embed(ctx, []string{kb.question(ex.CheckID) + "\n" + ex.Quote})
	if err != nil {
		return fmt.Errorf("embed example: %w", err)
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return fmt.Errorf("embed example: no vector returned")
	}
	return kb.store.Upsert(ctx, ex, vectors[0])
}

func (kb *KnowledgeBase) question(id string) string {
	if q := kb.questions[id]; q != "" {
		return q
	}
	return id
}
