package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// FileFetcher reads file:// references and bare paths.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, transient(ref, err)
	}
	path := strings.TrimPrefix(ref, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(ref, err)
		}
		return nil, transient(ref, err)
	}
	return data, nil
}
