package swap23

import (
	"sync"
	"testing"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/tree"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

func solidDepth(n int, depth float32, rank int) img.Image {
	colors := make([]colorpix.RGBA8, n)
	depths := make([]float32, n)
	for i := range colors {
		colors[i] = colorpix.RGBA8{R: uint8(rank * 20), A: 255}
		depths[i] = depth
	}
	return img.NewDenseColorDepth(n, 1, 0, n, img.Viewport{MaxX: n, MaxY: 1}, colors, depths)
}

func runComposite(t *testing.T, numProc, n int) ([]Result, []error) {
	t.Helper()
	f := fabric.New(numProc)
	g := group.All(numProc)
	root := tree.Build(g, n)

	var wg sync.WaitGroup
	results := make([]Result, numProc)
	errs := make([]error, numProc)
	for rank := 0; rank < numProc; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			ep := f.Endpoint(rank)
			depth := float32(rank + 1)
			im := solidDepth(n, depth, rank)
			res, err := Do(ep, root, im, fabric.Tag(0), wire.Options{})
			results[rank] = res
			errs[rank] = err
		}(rank)
	}
	wg.Wait()
	return results, errs
}

func TestDoSixRanksNearestDepthWins(t *testing.T) {
	const numProc = 6
	const n = 24
	results, errs := runComposite(t, numProc, n)
	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}
	for rank, res := range results {
		dd, ok := res.Piece.(*img.DenseColorDepthImage)
		if !ok {
			t.Fatalf("rank %d: piece is %T, want *img.DenseColorDepthImage", rank, res.Piece)
		}
		for i, d := range dd.Depths() {
			if d != 1 {
				t.Errorf("rank %d piece pixel %d: depth %v, want 1", rank, i, d)
			}
		}
	}
}

func TestDoFourRanksPowerOfTwo(t *testing.T) {
	const numProc = 4
	const n = 16
	results, errs := runComposite(t, numProc, n)
	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}
	total := 0
	for _, res := range results {
		total += res.Piece.NumberOfPixels()
	}
	if total != n {
		t.Errorf("sum of piece sizes = %d, want %d", total, n)
	}
}
