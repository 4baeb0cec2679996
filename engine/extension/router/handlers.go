package extrouter

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/infra/server/router"
	"github.com/compozy/conduit/engine/integration"
)

const (
	filePart          = "file"
	userHeader        = "X-Forwarded-User"
	errEmptyMultipart = "Multipart request is empty"
)

// ValidationResponse carries the findings of a validation run.
type ValidationResponse struct {
	Violations []extension.Violation `json:"violations"`
}

// InstallResponse is the installed record plus non-blocking warnings.
type InstallResponse struct {
	Extension *integration.Extension `json:"extension"`
	Warnings  []extension.Violation  `json:"warnings,omitempty"`
}

// uploadExtension stores a new draft from a multipart upload.
//
//	@Summary		Upload extension
//	@Description	Upload an extension jar. The binary is read from the "file" part, or from the only part sent.
//	@Tags			extensions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Extension jar"
//	@Param			updatedId	query		string	false	"Record replaced by this upload"
//	@Success		201	{object}	router.Response{data=integration.Extension}	"Extension uploaded"
//	@Failure		400	{object}	router.ProblemDocument	"Invalid upload"
//	@Failure		500	{object}	router.ProblemDocument	"Internal server error"
//	@Router			/extensions [post]
func uploadExtension(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	fh, err := uploadedFile(c)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	file, err := fh.Open()
	if err != nil {
		router.RespondError(c, core.NewError(err, core.CodeInvalidInput, nil))
		return
	}
	defer file.Close()
	ext, err := state.Extensions.Upload(c.Request.Context(), extension.UploadInput{
		File:      file,
		UserID:    c.GetHeader(userHeader),
		UpdatedID: strings.TrimSpace(c.Query("updatedId")),
	})
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondCreated(c, "extension uploaded", ext)
}

func uploadedFile(c *gin.Context) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, core.Errorf(core.CodeInvalidInput, "extension exceeds %d bytes", maxErr.Limit)
		}
		return nil, core.NewError(extension.ErrMissingFile, core.CodeInvalidInput, nil)
	}
	if files := form.File[filePart]; len(files) > 0 {
		return files[0], nil
	}
	var parts []*multipart.FileHeader
	for _, files := range form.File {
		parts = append(parts, files...)
	}
	switch len(parts) {
	case 0:
		return nil, core.Errorf(core.CodeInvalidInput, errEmptyMultipart)
	case 1:
		return parts[0], nil
	default:
		return nil, core.NewError(extension.ErrMissingFile, core.CodeInvalidInput, nil)
	}
}

// listExtensions lists extensions.
//
//	@Summary		List extensions
//	@Tags			extensions
//	@Produce		json
//	@Param			query			query	string	false	"Comma separated field=value filters"	default(status=Installed)
//	@Param			extensionType	query	string	false	"Extension type"	example("Libraries")
//	@Param			sort			query	string	false	"Sort field"	example("name")
//	@Param			direction		query	string	false	"asc or desc"
//	@Param			page			query	int		false	"Page number"	default(1)
//	@Param			per_page		query	int		false	"Page size"	default(20)
//	@Success		200	{object}	router.Response{data=extension.ListResult}	"Extensions retrieved"
//	@Failure		400	{object}	router.ProblemDocument	"Invalid query"
//	@Router			/extensions [get]
func listExtensions(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	opts := extension.ListOptions{
		Filter:    c.Query("query"),
		Type:      c.Query("extensionType"),
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
		Page:      router.PageOrDefault(c.Query("page"), extension.DefaultPage),
		PerPage:   router.LimitOrDefault(c.Query("per_page"), extension.DefaultPerPage, 500),
	}
	out, err := state.Extensions.List(c.Request.Context(), opts)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "extensions retrieved", out)
}

func getExtension(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	ext, err := state.Extensions.Get(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "extension retrieved", ext)
}

// deleteExtension marks an extension deleted.
//
//	@Summary	Delete extension
//	@Tags		extensions
//	@Param		extension_id	path	string	true	"Extension record ID"
//	@Success	204	"Extension deleted"
//	@Failure	404	{object}	router.ProblemDocument	"Extension not found"
//	@Router		/extensions/{extension_id} [delete]
func deleteExtension(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	if err := state.Extensions.Delete(c.Request.Context(), id); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondNoContent(c)
}

// validateExtension validates a definition sent as JSON.
//
//	@Summary	Validate extension definition
//	@Tags		extensions
//	@Accept		json
//	@Produce	json
//	@Param		extension	body	integration.Extension	true	"Extension definition"
//	@Success	200	{object}	router.Response{data=extrouter.ValidationResponse}	"Non-blocking findings"
//	@Failure	400	{object}	router.ProblemDocument	"Blocking violations"
//	@Router		/extensions/validation [post]
func validateExtension(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	var ext integration.Extension
	if err := c.ShouldBindJSON(&ext); err != nil {
		router.RespondError(c, core.NewError(err, core.CodeInvalidInput, nil))
		return
	}
	warnings, err := state.Extensions.Validate(c.Request.Context(), &ext)
	respondValidation(c, warnings, err)
}

func validateExtensionByID(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	warnings, err := state.Extensions.ValidateByID(c.Request.Context(), id)
	respondValidation(c, warnings, err)
}

func respondValidation(c *gin.Context, warnings []extension.Violation, err error) {
	if err != nil {
		router.RespondError(c, err)
		return
	}
	if warnings == nil {
		warnings = []extension.Violation{}
	}
	router.RespondOK(c, "extension validated", ValidationResponse{Violations: warnings})
}

// installExtension installs a stored draft.
//
//	@Summary	Install extension
//	@Tags		extensions
//	@Produce	json
//	@Param		extension_id	path	string	true	"Extension record ID"
//	@Success	200	{object}	router.Response{data=extrouter.InstallResponse}	"Extension installed"
//	@Failure	400	{object}	router.ProblemDocument	"Blocking violations"
//	@Failure	404	{object}	router.ProblemDocument	"Extension not found"
//	@Router		/extensions/{extension_id}/install [post]
func installExtension(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	ext, warnings, err := state.Extensions.Install(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "extension installed", InstallResponse{Extension: ext, Warnings: warnings})
}

func listExtensionIntegrations(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	refs, err := state.Extensions.Integrations(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	if refs == nil {
		refs = []integration.ResourceIdentifier{}
	}
	router.RespondOK(c, "integrations retrieved", refs)
}

func getExtensionIcon(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	id := router.GetURLParam(c, "extension_id")
	if id == "" {
		return
	}
	icon, media, err := state.Extensions.Icon(c.Request.Context(), id)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, media, icon)
}
