package scheme

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/emm"
)

// ParallelBuild is BuildIndex sharded across shardCount goroutines: pts is
// partitioned contiguously, each shard computes its own label -> values
// partial map independently (descendLabels never touches shared state), and
// the partials are merged single-threaded before the one call to
// emm.Build. A malformed point in one shard does not swallow errors from
// the others: every shard's error is collected via go-multierror and
// returned together, rather than only the first one encountered.
func ParallelBuild(s *Scheme, key []byte, pts Plaintext, shardCount int) error {
	if shardCount < 1 {
		shardCount = 1
	}
	if shardCount > len(pts) {
		shardCount = len(pts)
	}
	if shardCount == 0 {
		return s.BuildIndex(key, pts)
	}

	shardSize := (len(pts) + shardCount - 1) / shardCount
	partials := make([]map[string][][]byte, shardCount)
	errs := make([]error, shardCount)

	var wg sync.WaitGroup
	for i := 0; i < shardCount; i++ {
		start := i * shardSize
		end := start + shardSize
		if start >= len(pts) {
			continue
		}
		if end > len(pts) {
			end = len(pts)
		}

		wg.Add(1)
		go func(idx, start, end int) {
			defer wg.Done()
			partial := map[string][][]byte{}
			for _, pv := range pts[start:end] {
				if pv.Point.Dim() != s.dim {
					errs[idx] = fmt.Errorf("scheme: point dimension %d != scheme dimension %d at index %d: %w", pv.Point.Dim(), s.dim, start, ers.ErrDimensionMismatch)
					return
				}
				for _, r := range s.descendLabels(pv.Point) {
					k := string(r.Bytes())
					partial[k] = append(partial[k], pv.Values...)
				}
			}
			partials[idx] = partial
		}(i, start, end)
	}
	wg.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr != nil {
		return merr.ErrorOrNil()
	}

	modified := map[string][][]byte{}
	for _, partial := range partials {
		for k, vs := range partial {
			modified[k] = append(modified[k], vs...)
		}
	}

	db, err := emm.Build(key, modified)
	if err != nil {
		return err
	}
	s.db = db
	s.built = true
	return nil
}
