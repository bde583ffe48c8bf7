package storage

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewLocalStorage(LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files/",
	}, logger)
	require.NoError(t, err)
	return s
}

func TestLocalStoragePutGet(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	err := s.Put(ctx, "resumes/u1/resume.pdf", strings.NewReader("fake pdf content"), PutOptions{
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	reader, info, err := s.Get(ctx, "resumes/u1/resume.pdf")
	require.NoError(t, err)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "fake pdf content", string(body))
	assert.Equal(t, "resumes/u1/resume.pdf", info.Key)
	assert.Equal(t, int64(len("fake pdf content")), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestLocalStorageGetMissing(t *testing.T) {
	s := newTestLocalStorage(t)

	_, _, err := s.Get(context.Background(), "resumes/u1/missing.pdf")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestLocalStoragePutNoOverwrite(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "proofs/u1/a.png", strings.NewReader("first"), PutOptions{}))

	err := s.Put(ctx, "proofs/u1/a.png", strings.NewReader("second"), PutOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyExists)

	// Overwrite: true replaces the object.
	require.NoError(t, s.Put(ctx, "proofs/u1/a.png", strings.NewReader("second"), PutOptions{Overwrite: true}))

	reader, _, err := s.Get(ctx, "proofs/u1/a.png")
	require.NoError(t, err)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))
}

func TestLocalStoragePutMaxSize(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	err := s.Put(ctx, "resumes/u1/big.pdf", strings.NewReader("0123456789"), PutOptions{MaxSize: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	// The oversized partial write must not be left behind.
	exists, err := s.Exists(ctx, "resumes/u1/big.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	// At exactly the limit the write succeeds.
	require.NoError(t, s.Put(ctx, "resumes/u1/ok.pdf", strings.NewReader("01234"), PutOptions{MaxSize: 5}))
}

func TestLocalStorageDeleteIsIdempotent(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "proofs/u1/a.png", strings.NewReader("data"), PutOptions{}))
	require.NoError(t, s.Delete(ctx, "proofs/u1/a.png"))

	exists, err := s.Exists(ctx, "proofs/u1/a.png")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is not an error.
	require.NoError(t, s.Delete(ctx, "proofs/u1/a.png"))
}

func TestLocalStorageURL(t *testing.T) {
	s := newTestLocalStorage(t)

	url, err := s.URL(context.Background(), "proofs/u1/a.png", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/proofs/u1/a.png", url)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	keys := []string{
		"",
		"../outside.txt",
		"resumes/../../etc/passwd",
		"..",
	}

	for _, key := range keys {
		t.Run("key "+key, func(t *testing.T) {
			err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)

			_, _, err = s.Get(ctx, key)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}
