package deadwood

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// analyzeFilesParallel runs parse and extraction on a worker pool bounded by
// NumCPU. Each file's facts land in its own slot and are merged afterwards
// in input order, so the Run sees the same sequence as the serial path.
// The first failure cancels the remaining workers.
func (e *Engine) analyzeFilesParallel(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.extractFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		e.merge(res)
	}
	return nil
}
