package state

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "state.txt"))

	value, ok := store.Load(context.Background())
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.txt")
	store := NewFileStore(zaptest.NewLogger(t), path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "first baseline with a longer body"))
	require.NoError(t, store.Save(ctx, "second"))

	value, ok := store.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, "second", value, "save must truncate the previous baseline")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileStore_LoadUnreadable(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be read as a file
	store := NewFileStore(zaptest.NewLogger(t), dir)

	_, ok := store.Load(context.Background())
	assert.False(t, ok)
}

func TestFileStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(zaptest.NewLogger(t), dir)

	err := store.Save(context.Background(), "baseline")
	assert.Error(t, err)
}

func TestFileStore_DefaultPath(t *testing.T) {
	store := NewFileStore(zaptest.NewLogger(t), "")
	assert.Equal(t, DefaultPath, store.Path())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok := store.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "baseline"))
	value, ok := store.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, "baseline", value)
	assert.Equal(t, 1, store.Saves())
}

type fakeS3 struct {
	objects map[string]string
	getErr  error
	putErr  error
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string]string{}}
	store := NewS3Store(zaptest.NewLogger(t), client, "ops-bucket", "fleet/state.txt")

	_, ok := store.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "baseline"))
	assert.Equal(t, "baseline", client.objects["ops-bucket/fleet/state.txt"])

	value, ok := store.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, "baseline", value)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{
		objects: map[string]string{},
		getErr:  errors.New("access denied"),
		putErr:  errors.New("access denied"),
	}
	store := NewS3Store(zaptest.NewLogger(t), client, "ops-bucket", "state.txt")

	_, ok := store.Load(ctx)
	assert.False(t, ok, "read failures are treated as no baseline")

	err := store.Save(ctx, "baseline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://ops-bucket/state.txt")
}
