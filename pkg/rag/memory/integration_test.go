//go:build integration

package memory

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"owlynn-be/internal/model"
	cachememory "owlynn-be/internal/repository/memory"
	"owlynn-be/internal/repository/unitofwork"
	"owlynn-be/pkg/database"
	"owlynn-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// openTestDB uses DB_CONNECTION_STRING when set and otherwise starts a
// pgvector container for the test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "pgvector/pgvector:pg16",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "owlynn",
					"POSTGRES_PASSWORD": "owlynn_password",
					"POSTGRES_DB":       "owlynn_test",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(90 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("Skipping integration test: cannot start postgres container: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		host, err := container.Host(ctx)
		require.NoError(t, err)
		// Workaround: testcontainers may return "null" as host in some environments
		if host == "" || host == "null" {
			host = "localhost"
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		require.NoError(t, err)

		dsn = fmt.Sprintf("host=%s user=owlynn password=owlynn_password dbname=owlynn_test port=%s sslmode=disable", host, port.Port())
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error)
	require.NoError(t, db.AutoMigrate(&model.Conversation{}, &model.Document{}, &model.VectorEntry{}))
	require.NoError(t, db.Exec(`TRUNCATE conversations, documents, vector_entries RESTART IDENTITY`).Error)
	return db
}

type axisProvider struct{}

func (axisProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	return axisEmbed(ctx, text)
}

func TestIntegration_PostgresTiers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(db)
	clock := time.Now().UTC()

	newManager := func() *Manager {
		return NewManager(
			cachememory.NewConversationCache(DefaultTTL),
			NewGormDurableStore(uowFactory),
			NewPgVectorIndex(uowFactory, axisProvider{}),
			WithClock(func() time.Time { return clock }),
		)
	}
	m := newManager()

	// Two snapshots; the second one wins on a cold fast tier.
	require.NoError(t, m.StoreConversation(ctx, "s1", adaHistory()[:2], store.Metadata{"turn": "1"}))
	clock = clock.Add(time.Second)
	require.NoError(t, m.StoreConversation(ctx, "s1", adaHistory(), store.Metadata{"turn": "2"}))

	cold := newManager()
	got, err := cold.GetConversation(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, "2", got.Metadata["turn"])

	// Documents join back to their records in index order.
	alpha, err := m.StoreDocument(ctx, "alpha doc", store.Metadata{store.MetaFilename: "alpha.txt"}, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.True(t, alpha.Indexed)
	_, err = m.StoreDocument(ctx, "beta doc", store.Metadata{store.MetaFilename: "beta.txt"}, []float32{0, 1, 0})
	require.NoError(t, err)
	unindexed, err := m.StoreDocument(ctx, "gamma doc", store.Metadata{store.MetaFilename: "gamma.txt"}, nil)
	require.NoError(t, err)
	assert.False(t, unindexed.Indexed)

	docs, err := m.SearchDocuments(ctx, "alpha", 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha.txt", docs[0].Filename)
	assert.Equal(t, "beta.txt", docs[1].Filename)

	require.NoError(t, m.IndexDocument(ctx, unindexed.ID, []float32{0, 0, 1}))
	docs, err = m.SearchDocuments(ctx, "gamma", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, unindexed.ID, docs[0].ID)

	list, total, err := m.ListDocuments(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 2)

	// Cleanup only touches snapshots past the cutoff.
	clock = clock.Add(31 * 24 * time.Hour)
	n, err := m.CleanupOldConversations(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
