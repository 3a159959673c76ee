package renderer

import (
	"context"
	"runtime"
	"sync"
)

// tileJob asks a worker to bring one tile up to a sample target
type tileJob struct {
	tile   *Tile
	target int
}

// tileDone reports a tile a worker picked up. err is set when the tile was
// abandoned part way.
type tileDone struct {
	tile  *Tile
	stats RenderStats
	err   error
}

// workerPool renders the tiles of a pass in parallel. Workers keep their
// raytracer for the whole render. Tiles never overlap, so the shared pixel
// grid is written without locking.
type workerPool struct {
	workers []*tileRenderer
}

func newWorkerPool(scene Scene, numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	pool := &workerPool{workers: make([]*tileRenderer, numWorkers)}
	for i := range pool.workers {
		pool.workers[i] = newTileRenderer(scene, NewRaytracer(scene))
	}
	return pool
}

func (p *workerPool) size() int {
	return len(p.workers)
}

// render hands the jobs to the workers and reports every tile one of them
// picked up. Once ctx is cancelled no further jobs are handed out, and the
// returned channel closes as soon as the running tiles have returned.
func (p *workerPool) render(ctx context.Context, jobs []tileJob, pixels [][]PixelStats) <-chan tileDone {
	queue := make(chan tileJob)
	done := make(chan tileDone, len(jobs))

	var wg sync.WaitGroup
	for _, worker := range p.workers {
		wg.Add(1)
		go func(worker *tileRenderer) {
			defer wg.Done()
			for job := range queue {
				stats, err := worker.render(ctx, job.tile.Bounds, pixels, job.tile.Sampler, job.target)
				done <- tileDone{tile: job.tile, stats: stats, err: err}
			}
		}(worker)
	}

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}
