package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Upload(ctx, "reports/low-stock/a.xlsx", strings.NewReader("payload"), "")
	require.NoError(t, err)

	data, err := s.Download(ctx, "reports/low-stock/a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	link, err := s.PresignedURL(ctx, "reports/low-stock/a.xlsx", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "file://"))

	require.NoError(t, s.Delete(ctx, "reports/low-stock/a.xlsx"))
	_, err = s.Download(ctx, "reports/low-stock/a.xlsx")
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, "reports/low-stock/a.xlsx"))
}

func TestLocalStorage_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"imports/1.xlsx", "imports/2.xlsx", "reports/r.xlsx"} {
		_, err := s.Upload(ctx, key, strings.NewReader(key), "")
		require.NoError(t, err)
	}

	objects, err := s.List(ctx, "imports/")
	require.NoError(t, err)
	keys := lo.Map(objects, func(o ports.ObjectInfo, _ int) string { return o.Key })
	assert.ElementsMatch(t, []string{"imports/1.xlsx", "imports/2.xlsx"}, keys)
	for _, o := range objects {
		assert.False(t, o.LastModified.IsZero())
	}
}

func TestLocalStorage_KeysCannotEscapeRoot(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Upload(ctx, "../../outside.txt", strings.NewReader("x"), "")
	require.NoError(t, err)

	objects, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "outside.txt", objects[0].Key)

	_, err = s.Upload(ctx, "/", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/csv", detectContentType("a.csv", "text/csv"))
	assert.Equal(t, "application/octet-stream", detectContentType("blob", ""))
	assert.NotEmpty(t, detectContentType("report.xlsx", ""))
}
