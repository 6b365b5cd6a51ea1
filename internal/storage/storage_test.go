package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	p, err := CleanPath("resources/abc/photo.png")
	require.NoError(t, err)
	assert.Equal(t, "resources/abc/photo.png", p)

	p, err = CleanPath("/tasks//x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "tasks/x.pdf", p)

	for _, bad := range []string{"", "/", "../etc/passwd", "a/../../b", `a\b`} {
		_, err := CleanPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root, "/files/")
	require.NoError(t, err)

	url, err := s.Upload(ctx, "resources/r1/a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/files/resources/r1/a.txt", url)

	data, err := os.ReadFile(filepath.Join(root, "resources", "r1", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	got, err := s.URL(ctx, "resources/r1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, url, got)

	p, ok := s.PathOf(url)
	require.True(t, ok)
	assert.Equal(t, "resources/r1/a.txt", p)

	require.NoError(t, s.Delete(ctx, p))
	assert.ErrorIs(t, s.Delete(ctx, p), ErrNotFound)
	_, err = s.URL(ctx, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathFromURLForeign(t *testing.T) {
	_, ok := PathFromURL("/files", "https://elsewhere.example/x.png")
	assert.False(t, ok)
}

type failingStore struct{ calls int }

func (f *failingStore) Upload(context.Context, string, io.Reader) (string, error) {
	f.calls++
	return "", errors.New("disk on fire")
}
func (f *failingStore) Delete(context.Context, string) error {
	f.calls++
	return ErrNotFound
}
func (f *failingStore) URL(context.Context, string) (string, error) {
	f.calls++
	return "", errors.New("disk on fire")
}

func (f *failingStore) PathOf(string) (string, bool) { return "", false }

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	inner := &failingStore{}
	b := NewBreakerStore("test", inner)

	for i := 0; i < 4; i++ {
		_, err := b.Upload(ctx, "x", strings.NewReader(""))
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.URL(ctx, "x")
	require.Error(t, err)
	assert.Equal(t, 4, inner.calls, "open breaker must not reach the store")
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerStore("test", &failingStore{})
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, b.Delete(ctx, "x"), ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerPassesThrough(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)
	b := NewBreakerStore("test", s)

	url, err := b.Upload(context.Background(), "a/b.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/files/a/b.txt", url)
}
