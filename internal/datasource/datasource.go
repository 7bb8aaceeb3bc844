// Package datasource abstracts where input bytes come from. The validator
// only ever needs a readable stream; acquisition (downloads, unzipping) is a
// separate concern that happens before this program runs.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream for one resource's data.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
