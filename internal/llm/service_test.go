package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type scriptedGenerator struct {
	replies []string
	errs    []error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)

	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	reply := ""
	if i < len(g.replies) {
		reply = g.replies[i]
	}
	return reply, err
}

func testOptions() Options {
	return Options{
		Timeout:       time.Second,
		MaxAttempts:   3,
		MaxElapsed:    5 * time.Second,
		InitialDelay:  time.Millisecond,
		MaxInputChars: 4000,
	}
}

func TestServiceExtract(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"name":"Jane Doe","email":"Jane@Example.com","phone":null,"skills":["Go","SQL"],"summary":"Backend engineer"}`}}
	svc := NewServiceWithGenerator(ProviderOpenAI, gen, testOptions(), nil)

	fields, err := svc.Extract(context.Background(), "cv text")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", fields.Name)
	assert.Equal(t, "jane@example.com", fields.Email)
	assert.Empty(t, fields.Phone)
	assert.Equal(t, []string{"Go", "SQL"}, fields.Skills)
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "cv text")
}

func TestServiceRetriesUntilSuccess(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gen := &scriptedGenerator{
		replies: []string{"", "not json at all", `{"name":"Ann","email":"ann@x.io"}`},
		errs:    []error{errors.New("503 service unavailable")},
	}
	svc := NewServiceWithGenerator(ProviderGroq, gen, testOptions(), zap.New(core))

	fields, err := svc.Extract(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, "Ann", fields.Name)
	assert.Len(t, gen.prompts, 3)
	assert.Equal(t, 2, logs.FilterMessage("[LLM] extraction attempt failed, retrying").Len())
}

func TestServiceGivesUpAfterMaxAttempts(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"garbage", "garbage", "garbage", "garbage"}}
	svc := NewServiceWithGenerator(ProviderOpenAI, gen, testOptions(), nil)

	fields, err := svc.Extract(context.Background(), "text")
	require.Error(t, err)

	assert.Nil(t, fields)
	assert.Len(t, gen.prompts, 3)
	assert.Contains(t, err.Error(), "3 attempt(s)")
}

func TestServiceStopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := NewServiceWithGenerator(ProviderOpenAI, gen, testOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Extract(ctx, "text")
	require.Error(t, err)
	assert.Empty(t, gen.prompts)
}

func TestServiceTruncatesInput(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"name":"A","email":"a@b.co"}`}}
	opts := testOptions()
	opts.MaxInputChars = 10
	svc := NewServiceWithGenerator(ProviderOpenAI, gen, opts, nil)

	_, err := svc.Extract(context.Background(), strings.Repeat("é", 20)+"TAIL")
	require.NoError(t, err)

	assert.Contains(t, gen.prompts[0], strings.Repeat("é", 10))
	assert.NotContains(t, gen.prompts[0], "TAIL")
}

func TestNewServiceNotConfigured(t *testing.T) {
	_, err := NewService(context.Background(), Config{Provider: "none", APIKey: "k"}, nil, testOptions(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewService(context.Background(), Config{Provider: "openai"}, nil, testOptions(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewServiceOpenAICompatible(t *testing.T) {
	svc, err := NewService(context.Background(), Config{Provider: "Groq", APIKey: "k", Model: "llama"}, nil, testOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, "llm:groq", svc.Name())
	assert.IsType(t, &OpenAIGenerator{}, svc.generator)
}
