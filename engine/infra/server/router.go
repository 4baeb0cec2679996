package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/engine/infra/server/router"
	"github.com/compozy/conduit/engine/infra/server/routes"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/compozy/conduit/pkg/version"
)

func (s *Server) buildRouter(state *appstate.State) error {
	r := gin.New()
	r.Use(router.Recovery())
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware())
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	r.Use(LoggerMiddleware(logger.FromContext(s.ctx)))
	r.Use(appstate.StateMiddleware(state))
	if err := RegisterRoutes(s.ctx, r, state); err != nil {
		return err
	}
	s.router = r
	return nil
}

func (s *Server) logStartupBanner() {
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(s.cfg.Server.Host), s.cfg.Server.Port)
	lines := []string{
		fmt.Sprintf("Conduit %s", version.GetVersion()),
		fmt.Sprintf("  API           > %s%s", httpURL, routes.Base()),
		fmt.Sprintf("  Health        > %s%s", httpURL, routes.HealthVersioned()),
		fmt.Sprintf("  Extensions    > %s%s", httpURL, routes.Extensions()),
		fmt.Sprintf("  Export        > %s%s/{id}/export.tar", httpURL, routes.Integrations()),
	}
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics       > %s%s", httpURL, s.monitoring.Path()))
	}
	logger.FromContext(s.ctx).Info("\n" + strings.Join(lines, "\n"))
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
