package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
)

const (
	statusCollection = "status_callbacks"
	reportCollection = "activity_reports"
)

// Repository defines the interface for webhook archive storage.
type Repository interface {
	SaveStatusCallbacks(ctx context.Context, statuses []models.StatusCallback) error
	SaveActivityReport(ctx context.Context, report models.ActivityReport) error
	Close(ctx context.Context) error
}

// statusDocument is the stored shape of one delivery receipt.
type statusDocument struct {
	MessageID    string               `bson:"message_id"`
	Status       string               `bson:"status"`
	RecipientID  string               `bson:"recipient_id"`
	Timestamp    int64                `bson:"timestamp"`
	Conversation *models.Conversation `bson:"conversation,omitempty"`
	Pricing      *models.Pricing      `bson:"pricing,omitempty"`
	Errors       []models.ErrorDetail `bson:"errors,omitempty"`
	Failed       bool                 `bson:"failed"`
	ReceivedAt   time.Time            `bson:"received_at"`
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	now    func() time.Time
}

// NewMongoDBRepository connects and pings the server before returning.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{client: client, dbName: dbName, now: time.Now}
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection(statusCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "message_id", Value: 1}}},
		{Keys: bson.D{{Key: "received_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create status indexes: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveStatusCallbacks archives a batch of delivery receipts.
func (r *MongoDBRepository) SaveStatusCallbacks(ctx context.Context, statuses []models.StatusCallback) error {
	if len(statuses) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(statuses))
	receivedAt := r.now().UTC()
	for _, st := range statuses {
		docs = append(docs, newStatusDocument(st, receivedAt))
	}

	if _, err := r.collection(statusCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert status callbacks: %w", err)
	}
	return nil
}

// SaveActivityReport stores one periodic activity report.
func (r *MongoDBRepository) SaveActivityReport(ctx context.Context, report models.ActivityReport) error {
	if _, err := r.collection(reportCollection).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert activity report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func newStatusDocument(st models.StatusCallback, receivedAt time.Time) statusDocument {
	return statusDocument{
		MessageID:    st.MessageID,
		Status:       string(st.Status),
		RecipientID:  st.RecipientID,
		Timestamp:    st.Timestamp,
		Conversation: st.Conversation,
		Pricing:      st.Pricing,
		Errors:       st.Errors,
		Failed:       st.Failed(),
		ReceivedAt:   receivedAt,
	}
}
