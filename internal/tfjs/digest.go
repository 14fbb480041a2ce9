package tfjs

import (
	"context"
	_ "crypto/sha256"
	"os"
	"path/filepath"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// maxDigestWorkers bounds how many files are hashed at once.
const maxDigestWorkers = 4

// Digests returns the sha256 digest of every regular file in the artifact,
// keyed by entry name.
func (a *Artifact) Digests(ctx context.Context) (map[string]digest.Digest, error) {
	var (
		mu      sync.Mutex
		digests = make(map[string]digest.Digest, len(a.Entries))
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxDigestWorkers)
	for _, e := range a.Entries {
		if e.IsDir {
			continue
		}
		e := e // per-iteration copy; module targets go 1.21 loop semantics
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(filepath.Join(a.Dir, e.Name))
			if err != nil {
				return err
			}
			defer f.Close()

			d, err := digest.FromReader(f)
			if err != nil {
				return err
			}
			mu.Lock()
			digests[e.Name] = d
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}
