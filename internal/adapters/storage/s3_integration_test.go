//go:build integration
// +build integration

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMinio(t *testing.T) *S3Storage {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        "latest",
		Cmd:        []string{"server", "/data"},
		Env:        []string{"MINIO_ROOT_USER=minioadmin", "MINIO_ROOT_PASSWORD=minioadmin"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start MinIO container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	cfg := &S3Config{
		Region:          "us-east-1",
		Bucket:          "warehouse-reports-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Endpoint:        fmt.Sprintf("http://localhost:%s", resource.GetPort("9000/tcp")),
		UsePathStyle:    true,
	}

	var s *S3Storage
	err = pool.Retry(func() error {
		var err error
		s, err = NewS3Storage(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		return err
	})
	require.NoError(t, err, "Could not connect to MinIO")

	return s
}

func TestS3Storage_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	s := setupMinio(t)

	_, err := s.Upload(ctx, "reports/low-stock/r1.xlsx", strings.NewReader("sheet"), "")
	require.NoError(t, err)

	data, err := s.Download(ctx, "reports/low-stock/r1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "sheet", string(data))

	objects, err := s.List(ctx, "reports/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "reports/low-stock/r1.xlsx", objects[0].Key)

	link, err := s.PresignedURL(ctx, "reports/low-stock/r1.xlsx", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, link, "X-Amz-Signature")

	require.NoError(t, s.Delete(ctx, "reports/low-stock/r1.xlsx"))
	_, err = s.Download(ctx, "reports/low-stock/r1.xlsx")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}
