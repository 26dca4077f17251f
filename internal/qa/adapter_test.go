package qa

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
	"github.com/ramili4/ml-ci-pipeline/internal/model"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Provider() backend.Provider {
	return backend.Provider("mock")
}

func (m *MockBackend) Load(ctx context.Context, modelPath string) error {
	return m.Called(ctx, modelPath).Error(0)
}

func (m *MockBackend) Answer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*backend.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Close() error {
	return m.Called().Error(0)
}

func modelDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "squad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range map[string]string{
		"config.json":       `{"model_type":"bert"}`,
		"vocab.txt":         "[UNK]\n",
		"model.safetensors": "w",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestNewAdapter(t *testing.T) {
	dir := modelDir(t)
	b := new(MockBackend)
	b.On("Load", mock.Anything, dir).Return(nil).Once()

	a, err := NewAdapter(context.Background(), dir, b)
	require.NoError(t, err)
	assert.Equal(t, dir, a.Path())
	assert.Equal(t, "bert", a.Artifacts().ModelType)

	b.AssertExpectations(t)
}

func TestNewAdapter_InvalidArtifacts(t *testing.T) {
	b := new(MockBackend)

	_, err := NewAdapter(context.Background(), t.TempDir(), b)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, model.ErrInvalidArtifacts)

	b.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestNewAdapter_BackendLoadFails(t *testing.T) {
	dir := modelDir(t)
	boom := errors.New("inference server unreachable")
	b := new(MockBackend)
	b.On("Load", mock.Anything, dir).Return(boom)

	_, err := NewAdapter(context.Background(), dir, b)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, dir, loadErr.Path)
	assert.ErrorIs(t, err, boom)
}

func loadedAdapter(t *testing.T, b *MockBackend, opts ...Option) *Adapter {
	t.Helper()
	dir := modelDir(t)
	b.On("Load", mock.Anything, dir).Return(nil)

	a, err := NewAdapter(context.Background(), dir, b, opts...)
	require.NoError(t, err)
	return a
}

func TestAdapter_Answer(t *testing.T) {
	b := new(MockBackend)
	a := loadedAdapter(t, b)
	meta := &backend.ResponseMetadata{Provider: backend.ProviderHTTP, Model: a.Path(), Duration: 40 * time.Millisecond}

	b.On("Answer", mock.Anything, &backend.Request{
		ModelPath: a.Path(),
		Question:  "What is the capital of France?",
		Context:   "The capital of France is Paris.",
	}).Return(&backend.Response{Answer: "Paris", Score: 0.97, Start: 25, End: 30, Metadata: meta}, nil).Once()

	res, err := a.Answer(context.Background(), "What is the capital of France?", "The capital of France is Paris.")
	require.NoError(t, err)
	assert.Equal(t, Result{Answer: "Paris", Score: 0.97, Start: 25, End: 30, Metadata: meta}, res)

	payload, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"Paris","score":0.97,"start":25,"end":30}`, string(payload))

	b.AssertExpectations(t)
}

func TestAdapter_AnswerFailures(t *testing.T) {
	cases := map[string]func(b *MockBackend){
		"backend error": func(b *MockBackend) {
			b.On("Answer", mock.Anything, mock.Anything).Return(nil, errors.New("tokenizer crashed"))
		},
		"score out of range": func(b *MockBackend) {
			b.On("Answer", mock.Anything, mock.Anything).Return(&backend.Response{Answer: "x", Score: 1.5}, nil)
		},
		"panic": func(b *MockBackend) {
			b.On("Answer", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
				panic("index out of range")
			})
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			b := new(MockBackend)
			a := loadedAdapter(t, b)
			setup(b)

			_, err := a.Answer(context.Background(), "q", "c")
			var infErr *InferenceError
			require.ErrorAs(t, err, &infErr)
			assert.Contains(t, err.Error(), "inference failed")
		})
	}
}

func TestAdapter_AnswerTimeout(t *testing.T) {
	b := new(MockBackend)
	a := loadedAdapter(t, b, WithTimeout(20*time.Millisecond))

	b.On("Answer", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
	})

	_, err := a.Answer(context.Background(), "q", "c")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdapter_ConcurrentAnswers(t *testing.T) {
	b := new(MockBackend)
	a := loadedAdapter(t, b)
	b.On("Answer", mock.Anything, mock.Anything).Return(&backend.Response{Answer: "Paris", Score: 0.9, Start: 0, End: 5}, nil)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.Answer(context.Background(), "q", "Paris")
			assert.NoError(t, err)
			assert.Equal(t, "Paris", res.Answer)
		}()
	}
	wg.Wait()
}

func TestAdapter_Close(t *testing.T) {
	b := new(MockBackend)
	a := loadedAdapter(t, b)
	b.On("Close").Return(nil).Once()

	require.NoError(t, a.Close())
	b.AssertExpectations(t)
}
