package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	mongoclient "github.com/wms-platform/audit-service/pkg/mongodb"
)

// MongoDBContainer wraps a testcontainers MongoDB instance
type MongoDBContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// NewMongoDBContainer starts mongo:6
func NewMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{Container: container, URI: uri}, nil
}

// Client connects the service client to a fresh database in the container
func (m *MongoDBContainer) Client(ctx context.Context, database string) (*mongoclient.Client, error) {
	cfg := mongoclient.DefaultConfig()
	cfg.URI = m.URI
	cfg.Database = database
	cfg.ServerSelectionTimeout = 10 * time.Second
	return mongoclient.NewClient(ctx, cfg)
}

// Close terminates the MongoDB container
func (m *MongoDBContainer) Close() error {
	if m.Container == nil {
		return nil
	}
	return testcontainers.TerminateContainer(m.Container)
}
