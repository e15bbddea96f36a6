package turn_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"luna/pkg/assets"
	"luna/pkg/imagegen"
	"luna/pkg/schema"
)

type Inferencer struct {
	mock.Mock
}

func (m *Inferencer) Infer(ctx context.Context, system string, history []schema.Message, user string) (string, error) {
	args := m.Called(ctx, system, history, user)
	return args.String(0), args.Error(1)
}

type Synthesizer struct {
	mock.Mock
}

func (m *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	var audio []byte
	if v := args.Get(0); v != nil {
		audio = v.([]byte)
	}
	return audio, args.Error(1)
}

type Generator struct {
	mock.Mock
}

func (m *Generator) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	args := m.Called(ctx, prompt)
	var img *imagegen.Image
	if v := args.Get(0); v != nil {
		img = v.(*imagegen.Image)
	}
	return img, args.Error(1)
}

type GreetingSource struct {
	mock.Mock
}

func (m *GreetingSource) Greeting() (*assets.Greeting, error) {
	args := m.Called()
	var g *assets.Greeting
	if v := args.Get(0); v != nil {
		g = v.(*assets.Greeting)
	}
	return g, args.Error(1)
}

type Inliner struct {
	mock.Mock
}

func (m *Inliner) Inline(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}
