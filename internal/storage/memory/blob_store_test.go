package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAndExists(t *testing.T) {
	t.Parallel()

	s := NewObjectStore()
	uri, err := s.Put(context.Background(), "jobs/j1/docs/abc.pdf", "application/pdf", []byte("data"), map[string]string{"job_id": "j1"})
	require.NoError(t, err)
	require.Equal(t, "memory://jobs/j1/docs/abc.pdf", uri)

	ok, err := s.Exists(context.Background(), "jobs/j1/docs/abc.pdf")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Exists(context.Background(), "jobs/j1/docs/missing.pdf")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, "j1", s.Metadata("jobs/j1/docs/abc.pdf")["job_id"])
}

func TestPutRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	s := NewObjectStore()
	_, err := s.Put(context.Background(), "", "application/pdf", []byte("data"), nil)
	require.Error(t, err)
}

func TestPutCopiesData(t *testing.T) {
	t.Parallel()

	s := NewObjectStore()
	data := []byte("original")
	_, err := s.Put(context.Background(), "k", "", data, nil)
	require.NoError(t, err)

	data[0] = 'X'
	stored, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("original"), stored)
}
