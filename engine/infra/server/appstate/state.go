package appstate

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/generator"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/config"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// State holds the services shared by every request handler.
type State struct {
	Config     *config.Config
	Resources  *resources.Manager
	Generator  *generator.Generator
	Extensions *extension.Service
}

func NewState(
	cfg *config.Config,
	m *resources.Manager,
	gen *generator.Generator,
	extensions *extension.Service,
) (*State, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if m == nil {
		return nil, fmt.Errorf("resource manager is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if extensions == nil {
		extensions = extension.NewService(m, nil)
	}
	return &State{
		Config:     cfg,
		Resources:  m,
		Generator:  gen,
		Extensions: extensions,
	}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
