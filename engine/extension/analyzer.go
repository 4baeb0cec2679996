package extension

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tidwall/gjson"

	"github.com/compozy/conduit/engine/integration"
)

// DefinitionPath is the location of the extension descriptor inside a jar.
const DefinitionPath = "META-INF/syndesis/syndesis-extension-definition.json"

var (
	ErrNotArchive        = errors.New("uploaded file is not a jar archive")
	ErrMissingDefinition = errors.New("extension definition not found in archive")
	ErrEntryNotFound     = errors.New("archive entry not found")
)

// Analyzer extracts the extension definition embedded in an uploaded binary and reads
// auxiliary entries such as icons.
type Analyzer interface {
	Analyze(ctx context.Context, binary []byte) (*integration.Extension, error)
	ReadEntry(ctx context.Context, binary []byte, name string) ([]byte, error)
}

// JarAnalyzer reads extension jars.
type JarAnalyzer struct{}

func NewJarAnalyzer() *JarAnalyzer {
	return &JarAnalyzer{}
}

func openJar(binary []byte) (*zip.Reader, error) {
	if !isZip(mimetype.Detect(binary)) {
		return nil, ErrNotArchive
	}
	zr, err := zip.NewReader(bytes.NewReader(binary), int64(len(binary)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	return zr, nil
}

// isZip walks the detected type hierarchy, jar being a child of zip.
func isZip(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func (a *JarAnalyzer) Analyze(ctx context.Context, binary []byte) (*integration.Extension, error) {
	raw, err := a.ReadEntry(ctx, binary, DefinitionPath)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, ErrMissingDefinition
		}
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("extension definition is not valid JSON")
	}
	if id := gjson.GetBytes(raw, "extensionId").String(); strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("extension definition has no extensionId")
	}
	var ext integration.Extension
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, fmt.Errorf("failed to decode extension definition: %w", err)
	}
	if ext.ExtensionType == "" {
		ext.ExtensionType = integration.ExtensionTypeSteps
	}
	// stored ids and states are assigned by the service
	ext.ID = ""
	ext.Status = ""
	return &ext, nil
}

func (a *JarAnalyzer) ReadEntry(_ context.Context, binary []byte, name string) ([]byte, error) {
	zr, err := openJar(binary)
	if err != nil {
		return nil, err
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	f, err := zr.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
