package radixk

import (
	"reflect"
	"sync"
	"testing"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

func TestGenerateKExactFactors(t *testing.T) {
	got := GenerateK(4, 16)
	want := []int{4, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateK(4, 16) = %v, want %v", got, want)
	}
}

func TestGenerateKFallsBackOnPrimeRemainder(t *testing.T) {
	got := GenerateK(4, 14) // 14 = 2 * 7; 7 has no divisor in [2, 4]
	product := 1
	for _, k := range got {
		product *= k
	}
	if product != 14 {
		t.Errorf("GenerateK(4, 14) = %v, product %d, want product 14", got, product)
	}
}

func solidDepth(n int, depth float32, rank int) img.Image {
	colors := make([]colorpix.RGBA8, n)
	depths := make([]float32, n)
	for i := range colors {
		colors[i] = colorpix.RGBA8{R: uint8(rank * 10), A: 255}
		depths[i] = depth
	}
	return img.NewDenseColorDepth(n, 1, 0, n, img.Viewport{MaxX: n, MaxY: 1}, colors, depths)
}

func TestDoEightRanksTargetKFour(t *testing.T) {
	const numProc = 8
	const n = 32
	f := fabric.New(numProc)
	g := group.All(numProc)

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
			res, err := Do(ep, g, im, fabric.Tag(0), 4, wire.Options{})
			results[rank] = res
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
	for _, res := range results {
		total += res.Piece.NumberOfPixels()
		dd := res.Piece.(*img.DenseColorDepthImage)
		for i, d := range dd.Depths() {
			if d != 1 {
				t.Errorf("piece pixel %d: depth %v, want 1 (rank 0 nearest)", i, d)
			}
		}
	}
	if total != n {
		t.Errorf("sum of piece sizes = %d, want %d", total, n)
	}
}
