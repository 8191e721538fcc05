package image_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagepost/service/internal/db"
	"github.com/imagepost/service/internal/image"
)

// exerciseRepository runs the record lifecycle against a live backend.
func exerciseRepository(t *testing.T, repo image.Repository, missingID string) {
	ctx := context.Background()

	rec, err := repo.Create(ctx, []string{"k1", "k2"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	t.Cleanup(func() { _ = repo.DeleteByID(context.Background(), rec.ID) })

	found, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, found.Images, 2)
	assert.Equal(t, "k1", found.Images[0].Key)
	assert.Equal(t, "", found.Images[0].URL)
	assert.Equal(t, "k2", found.Images[1].Key)

	require.NoError(t, repo.UpdateImageURL(ctx, rec.ID, "k2", "https://x/k2"))
	found, err = repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "", found.Images[0].URL)
	assert.Equal(t, "https://x/k2", found.Images[1].URL)

	assert.ErrorIs(t, repo.UpdateImageURL(ctx, rec.ID, "nope", "u"), image.ErrNotFound)

	_, err = repo.FindByID(ctx, missingID)
	assert.ErrorIs(t, err, image.ErrNotFound)
	_, err = repo.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, image.ErrNotFound)

	require.NoError(t, repo.DeleteByID(ctx, rec.ID))
	_, err = repo.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, image.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, rec.ID), image.ErrNotFound)
}

func TestMongoRepository(t *testing.T) {
	url := os.Getenv("TEST_MONGODB_URL")
	if url == "" {
		t.Skip("TEST_MONGODB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := db.ConnectMongo(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := image.NewMongoRepository(client.Database("imageupload_test"))
	exerciseRepository(t, repo, "0123456789abcdef01234567")
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	_, err := db.Migrate(url)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	exerciseRepository(t, image.NewPostgresRepository(pool), uuid.NewString())
}
