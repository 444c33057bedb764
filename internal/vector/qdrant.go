package vector

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/models"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantOpener creates one collection per index over a shared gRPC
// connection.
type QdrantOpener struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

func NewQdrantOpener(addr string) (*QdrantOpener, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantOpener{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

func (o *QdrantOpener) Backend() string { return "qdrant" }

func (o *QdrantOpener) Open(ctx context.Context, indexID string, dim int) (Store, error) {
	name := CollectionName(indexID)
	_, err := o.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant create collection %s: %w", name, err)
	}
	return &QdrantStore{collection: name, dim: dim, collections: o.collections, points: o.points}, nil
}

func (o *QdrantOpener) Close() error {
	return o.conn.Close()
}

func CollectionName(indexID string) string {
	return "docchat_" + strings.ReplaceAll(indexID, "-", "")
}

type QdrantStore struct {
	collection  string
	dim         int
	collections pb.CollectionsClient
	points      pb.PointsClient
}

func (s *QdrantStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors, s.dim); err != nil {
		return err
	}
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(c.Ordinal)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: map[string]*pb.Value{
				"chunk_id": {Kind: &pb.Value_StringValue{StringValue: c.ChunkID}},
				"text":     {Kind: &pb.Value_StringValue{StringValue: c.Text}},
				"ordinal":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.Ordinal)}},
			},
		}
	}
	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, query []float32, topK int) ([]models.ChunkResult, error) {
	if len(query) != s.dim {
		return nil, ErrDimensionMismatch
	}
	if topK <= 0 {
		topK = 2
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	results := make([]models.ChunkResult, len(resp.Result))
	for i, pt := range resp.Result {
		results[i] = models.ChunkResult{
			ChunkID: pt.Payload["chunk_id"].GetStringValue(),
			Ordinal: int(pt.Payload["ordinal"].GetIntegerValue()),
			Text:    pt.Payload["text"].GetStringValue(),
			Score:   float64(pt.Score),
		}
	}
	return results, nil
}

func (s *QdrantStore) Drop(ctx context.Context) error {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
		return fmt.Errorf("qdrant delete collection %s: %w", s.collection, err)
	}
	return nil
}
