package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/infra/server/appstate"
)

// Response is the envelope of successful JSON responses.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Status: http.StatusOK, Message: message, Data: data})
}

func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Status: http.StatusCreated, Message: message, Data: data})
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// GetAppState returns the request's app state, writing a 500 problem when it is missing.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondProblemWithCode(c, http.StatusInternalServerError, "internal_error", ErrMsgAppStateNotInitialized)
		return nil
	}
	return state
}

// GetURLParam returns a trimmed path parameter, writing a 400 problem when it is empty.
func GetURLParam(c *gin.Context, key string) string {
	value := strings.TrimSpace(c.Param(key))
	if value == "" {
		RespondProblemWithCode(c, http.StatusBadRequest, "invalid_input", ErrMsgMissingParam+": "+key)
		return ""
	}
	return value
}
