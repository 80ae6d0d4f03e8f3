package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "warehouse-crm", cfg.App.Name)
	assert.Equal(t, StoragePostgres, cfg.Catalog.StorageDriver)
	assert.Equal(t, 100, cfg.Catalog.MaxPageSize)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.InDelta(t, 0.1, cfg.Layout.ZoomStep, 1e-12)
	assert.InDelta(t, 0.1, cfg.Layout.MinScale, 1e-12)
	assert.InDelta(t, 10.0, cfg.Layout.MaxScale, 1e-12)
	assert.Equal(t, map[string]int{"critical": 6, "default": 3, "low": 1}, cfg.Asynq.Queues)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORAGE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("CATALOG_MAX_PAGE_SIZE", "50")
	t.Setenv("LAYOUT_ZOOM_STEP", "0.25")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, StorageMongo, cfg.Catalog.StorageDriver)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, 50, cfg.Catalog.MaxPageSize)
	assert.InDelta(t, 0.25, cfg.Layout.ZoomStep, 1e-12)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_MalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CATALOG_MAX_PAGE_SIZE", "lots")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")
	t.Setenv("CATALOG_CACHE_ENABLED", "maybe")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Catalog.MaxPageSize)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Catalog.CacheEnabled)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown_storage_driver", env: map[string]string{"STORAGE_DRIVER": "cassandra"}},
		{name: "min_scale_not_positive", env: map[string]string{"LAYOUT_MIN_SCALE": "0"}},
		{name: "max_below_min_scale", env: map[string]string{"LAYOUT_MIN_SCALE": "2", "LAYOUT_MAX_SCALE": "1"}},
		{name: "zero_rate_limit", env: map[string]string{"RATE_LIMIT_REQUESTS": "0"}},
		{name: "production_memory_store", env: map[string]string{
			"APP_ENV":        "production",
			"STORAGE_DRIVER": "memory",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(discardLogger())
			assert.Error(t, err)
		})
	}
}

func TestValidate_RequiredPort(t *testing.T) {
	cfg := &Config{}
	err := (&BasicValidator{}).Validate(cfg)
	assert.True(t, errors.Is(err, ErrMissingRequiredConfig))
}

type fakeSecretsAPI struct {
	secret string
	calls  int
	err    error
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         in.SecretId,
		SecretString: aws.String(f.secret),
	}, nil
}

func TestApplySecrets_AWS(t *testing.T) {
	api := &fakeSecretsAPI{secret: `{"DB_PASSWORD":"from-aws","REDIS_PASSWORD":"r3dis"}`}
	sm := newAWSSecretsManager(api, "warehouse/prod", discardLogger())

	cfg := &Config{}
	cfg.Database.Password = "from-env"
	cfg.Mongo.URI = "mongodb://env"

	require.NoError(t, cfg.ApplySecrets(context.Background(), sm))

	assert.Equal(t, "from-aws", cfg.Database.Password)
	assert.Equal(t, "r3dis", cfg.Redis.Password)
	assert.Equal(t, "r3dis", cfg.Asynq.RedisPassword)
	assert.Equal(t, "mongodb://env", cfg.Mongo.URI)

	// a fully cached lookup does not call the API again
	val, err := sm.GetSecret(context.Background(), SecretDBPassword)
	require.NoError(t, err)
	assert.Equal(t, "from-aws", val)
	assert.Equal(t, 1, api.calls)
}

func TestApplySecrets_PropagatesErrors(t *testing.T) {
	sm := newAWSSecretsManager(&fakeSecretsAPI{err: errors.New("access denied")}, "warehouse/prod", discardLogger())

	err := (&Config{}).ApplySecrets(context.Background(), sm)
	assert.ErrorContains(t, err, "access denied")
}

func TestEnvSecretsManager(t *testing.T) {
	t.Setenv(SecretMongoURI, "mongodb://secret-host")

	cfg := &Config{}
	require.NoError(t, cfg.ApplySecrets(context.Background(), NewEnvSecretsManager()))
	assert.Equal(t, "mongodb://secret-host", cfg.Mongo.URI)

	_, err := NewEnvSecretsManager().GetSecret(context.Background(), "WAREHOUSE_UNSET_SECRET")
	assert.Error(t, err)
}
