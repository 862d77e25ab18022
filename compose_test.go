package compose

import (
	"sync"
	"testing"
)

func TestBinarySwapPublicAPI(t *testing.T) {
	const numProc = 4
	const n = 16
	f := NewFabric(numProc)
	g := AllRanks(numProc)

	var wg sync.WaitGroup
	pieces := make([]int, numProc)
	errs := make([]error, numProc)

	for rank := 0; rank < numProc; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			colors := make([]Color, n)
			depths := make([]float32, n)
			for i := range colors {
				colors[i] = Color{R: uint8(rank * 10), A: 255}
				depths[i] = float32(rank + 1)
			}
			im := NewDenseColorDepth(n, 1, 0, n, Viewport{MaxX: n, MaxY: 1}, colors, depths)
			res, err := BinarySwap(f.Endpoint(rank), g, im, Tag(0), Options{})
			pieces[rank] = res.Piece.NumberOfPixels()
			errs[rank] = err
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}
	total := 0
	for _, sz := range pieces {
		total += sz
	}
	if total != n {
		t.Errorf("total pixels = %d, want %d", total, n)
	}
}
