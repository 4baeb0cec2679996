package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/compozy/conduit/engine/core"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"
)

var (
	ErrEmptyDocument      = errors.New("api contract document is empty")
	ErrUnsupportedVersion = errors.New("unsupported api contract version")
)

// methodOrder fixes the order of operations sharing a path.
var methodOrder = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodTrace,
}

// Route is one exposed operation.
type Route struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
}

// RouteID is a stable identifier for the generated route.
func (r Route) RouteID() string {
	return slug.Make(r.OperationID)
}

// Contract is a parsed API contract normalized to OpenAPI 3.
type Contract struct {
	Doc *openapi3.T
	// SourceVersion is "2" for swagger documents and "3" otherwise.
	SourceVersion string
}

// Parse reads a swagger 2 or OpenAPI 3 document in JSON or YAML.
func Parse(ctx context.Context, data []byte) (*Contract, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyDocument
	}
	raw, err := toJSON(data)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(gjson.GetBytes(raw, "swagger").String(), "2"):
		var v2 openapi2.T
		if err := json.Unmarshal(raw, &v2); err != nil {
			return nil, invalid(err)
		}
		doc, err := openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, invalid(err)
		}
		return newContract(doc, "2")
	case strings.HasPrefix(gjson.GetBytes(raw, "openapi").String(), "3"):
		loader := openapi3.NewLoader()
		loader.Context = ctx
		doc, err := loader.LoadFromData(raw)
		if err != nil {
			return nil, invalid(err)
		}
		return newContract(doc, "3")
	default:
		return nil, core.NewError(ErrUnsupportedVersion, core.CodeInvalidInput, nil)
	}
}

func invalid(err error) error {
	return core.NewError(fmt.Errorf("invalid api contract: %w", err), core.CodeInvalidInput, nil)
}

func toJSON(data []byte) ([]byte, error) {
	raw, err := core.YAMLToJSON(data)
	if err != nil {
		return nil, invalid(err)
	}
	return raw, nil
}

func newContract(doc *openapi3.T, version string) (*Contract, error) {
	if doc.Info == nil {
		return nil, invalid(errors.New("missing info"))
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, invalid(errors.New("no paths declared"))
	}
	return &Contract{Doc: doc, SourceVersion: version}, nil
}

func (c *Contract) Title() string {
	return c.Doc.Info.Title
}

func (c *Contract) Version() string {
	return c.Doc.Info.Version
}

// BasePath is the path of the first declared server, "/" when there is none.
func (c *Contract) BasePath() string {
	if len(c.Doc.Servers) == 0 || c.Doc.Servers[0] == nil {
		return "/"
	}
	base, err := c.Doc.Servers[0].BasePath()
	if err != nil || base == "" {
		return "/"
	}
	return base
}

// Routes lists the operations sorted by path then method. Operations without an id get
// one derived from method and path.
func (c *Contract) Routes() []Route {
	items := c.Doc.Paths.Map()
	var routes []Route
	for _, p := range slices.Sorted(maps.Keys(items)) {
		ops := items[p].Operations()
		for _, method := range methodOrder {
			op, ok := ops[method]
			if !ok || op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = slug.Make(strings.ToLower(method) + " " + p)
			}
			routes = append(routes, Route{Method: method, Path: p, OperationID: id, Summary: op.Summary})
		}
	}
	return routes
}

// JSON renders the normalized OpenAPI 3 document.
func (c *Contract) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(c.Doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode api contract: %w", err)
	}
	return out, nil
}
