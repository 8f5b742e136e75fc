// Package builtin ships the default problem set compiled into the binary.
package builtin

import (
	_ "embed"
	"fmt"

	"gitlab.com/offlinejudge.net/internal/adapter/catalog/filestore"
)

//go:embed problems.yaml
var problemsYAML []byte

// New parses the embedded problem set
func New() (*filestore.Catalog, error) {
	problems, err := filestore.Parse(problemsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse builtin catalog: %w", err)
	}
	return filestore.NewCatalog(problems)
}
