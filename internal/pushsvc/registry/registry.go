package registry

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "push_connections"

// Registry records live gateway connections in mongo so operators can
// see which recipients are reachable and on which instance. Rows
// expire on their own through a TTL index; a crashed gateway leaves no
// stale state behind.
type Registry struct {
	col *mongo.Collection
	ttl time.Duration
}

type connectionDoc struct {
	UserId     string    `bson:"user_id"`
	SocketId   string    `bson:"socket_id"`
	InstanceId string    `bson:"instance_id"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func Connect(ttl time.Duration) (*Registry, error) {
	mongoURI := os.Getenv("MONGODB_URI")

	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, err
	}
	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	col := client.Database(dbName).Collection(collectionName)

	// TTL index; mongo drops rows once expires_at passes.
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := col.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, err
	}

	return &Registry{col: col, ttl: ttl}, nil
}

// Register records a new socket for the user.
func (r *Registry) Register(ctx context.Context, userId, socketId, instanceId string) {
	doc := connectionDoc{
		UserId:     userId,
		SocketId:   socketId,
		InstanceId: instanceId,
		ExpiresAt:  time.Now().UTC().Add(r.ttl),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		log.Errorf("Error registering connection %s: %s", socketId, err)
	}
}

// Unregister drops the socket row on disconnect.
func (r *Registry) Unregister(ctx context.Context, socketId string) {
	if _, err := r.col.DeleteOne(ctx, bson.M{"socket_id": socketId}); err != nil {
		log.Errorf("Error unregistering connection %s: %s", socketId, err)
	}
}

// Touch extends the TTL for a socket that is still alive.
func (r *Registry) Touch(ctx context.Context, socketId string) {
	update := bson.M{"$set": bson.M{"expires_at": time.Now().UTC().Add(r.ttl)}}
	if _, err := r.col.UpdateOne(ctx, bson.M{"socket_id": socketId}, update); err != nil {
		log.Errorf("Error touching connection %s: %s", socketId, err)
	}
}
