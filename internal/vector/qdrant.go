package vector

import (
	"context"
	"fmt"
	"sync"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantIndex implements Index against a Qdrant collection. The collection
// must already exist and be configured with the cosine distance so scores
// are comparable with the in-memory backend. Point ids are the corpus
// indexes, assigned in append order.
type QdrantIndex struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string

	mu   sync.Mutex
	next uint64
}

// NewQdrant creates a Qdrant-backed index.
func NewQdrant(ctx context.Context, host string, port int, collection string) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantIndex{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

func (q *QdrantIndex) Add(ctx context.Context, vectors ...[]float32) error {
	q.mu.Lock()
	points := make([]*pb.PointStruct, len(vectors))
	for i, v := range vectors {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: q.next}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: v}}},
		}
		q.next++
	}
	q.mu.Unlock()

	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	return err
}

func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         query,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(resp.Result))
	for i, pt := range resp.Result {
		hits[i] = Hit{
			Index: int(pt.Id.GetNum()),
			Score: float64(pt.Score),
		}
	}
	return hits, nil
}

func (q *QdrantIndex) Close() error { return q.conn.Close() }

var _ Index = (*QdrantIndex)(nil)
