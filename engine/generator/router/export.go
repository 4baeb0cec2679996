package genrouter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/engine/infra/server/router"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/pkg/archive"
	"github.com/compozy/conduit/pkg/logger"
)

const (
	tarContentType = "application/x-tar"
	streamBuffer   = 32 << 10
)

// exportIntegration streams the generated project of a stored integration.
//
//	@Summary		Export integration project
//	@Description	Generate the Maven project of an integration as a tar archive.
//	@Tags			integrations
//	@Produce		application/x-tar
//	@Param			integration_id	path	string	true	"Integration ID"
//	@Success		200	{file}		binary	"Project archive"
//	@Failure		400	{object}	router.ProblemDocument	"Invalid integration"
//	@Failure		404	{object}	router.ProblemDocument	"Integration not found"
//	@Failure		422	{object}	router.ProblemDocument	"Unsupported integration"
//	@Router			/integrations/{integration_id}/export.tar [get]
func exportIntegration(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "integration_id")
	if id == "" {
		return
	}
	integ, err := state.Resources.LoadIntegration(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	streamProject(c, state, integ)
}

func exportIntegrationBody(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	var integ integration.Integration
	if err := c.ShouldBindJSON(&integ); err != nil {
		router.RespondError(c, core.NewError(err, core.CodeInvalidInput, nil))
		return
	}
	streamProject(c, state, integ)
}

// streamProject holds the response until the first bytes are produced, so failures
// found before streaming starts still get a problem response. Later failures abort the
// connection so the client never mistakes a short archive for a complete one.
func streamProject(c *gin.Context, state *appstate.State, integ integration.Integration) {
	log := logger.FromContext(c.Request.Context()).With("integration_id", integ.ID)
	sink, errs := archive.ChannelSink()
	stream := state.Generator.Generate(c.Request.Context(), integ, sink)
	defer stream.Close()
	br := bufio.NewReaderSize(stream, streamBuffer)
	if _, err := br.Peek(1); err != nil {
		<-stream.Done()
		if reported := received(errs); reported != nil {
			router.RespondError(c, reported)
			return
		}
		if !errors.Is(err, io.EOF) {
			router.RespondError(c, err)
			return
		}
	}
	name := slug.Make(integ.Name)
	if name == "" {
		name = slug.Make(integ.ID)
	}
	if name == "" {
		name = "project"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".tar"))
	c.Header("Content-Type", tarContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, br); err != nil {
		stream.Close()
		<-stream.Done()
		log.Warn("Project transfer interrupted", "error", err)
		panic(http.ErrAbortHandler)
	}
	<-stream.Done()
	if reported := received(errs); reported != nil {
		_ = c.Error(reported)
		log.Error("Project generation failed after the response started", "error", reported)
		panic(http.ErrAbortHandler)
	}
}

func received(errs <-chan error) error {
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func getIntegrationProperties(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "integration_id")
	if id == "" {
		return
	}
	integ, err := state.Resources.LoadIntegration(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	props, err := state.Generator.ApplicationProperties(integ)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "properties rendered", props.Map())
}
