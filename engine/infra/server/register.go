package server

import (
	"context"

	"github.com/gin-gonic/gin"

	extrouter "github.com/compozy/conduit/engine/extension/router"
	genrouter "github.com/compozy/conduit/engine/generator/router"
	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/engine/infra/server/routes"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/compozy/conduit/pkg/version"
)

func RegisterRoutes(ctx context.Context, router *gin.Engine, state *appstate.State) error {
	health := CreateHealthHandler(version.GetVersion())
	router.GET("/health", health)
	apiBase := router.Group(routes.Base())
	apiBase.GET("/health", health)
	extrouter.Register(apiBase)
	genrouter.Register(apiBase)
	logger.FromContext(ctx).Info("Completed route registration",
		"base", routes.Base(),
		"base_package", state.Config.Generator.BasePackage,
	)
	return nil
}
