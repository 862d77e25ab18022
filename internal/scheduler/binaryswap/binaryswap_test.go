package binaryswap

import (
	"sync"
	"testing"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// solidDepth builds a dense color+depth image of n pixels all at the
// given depth, tagged with rank's color so contributions are
// distinguishable after compositing.
func solidDepth(n int, depth float32, rank int) img.Image {
	colors := make([]colorpix.RGBA8, n)
	depths := make([]float32, n)
	for i := range colors {
		colors[i] = colorpix.RGBA8{R: uint8(rank * 50), A: 255}
		depths[i] = depth
	}
	return img.NewDenseColorDepth(n, 1, 0, n, img.Viewport{MaxX: n, MaxY: 1}, colors, depths)
}

func TestDoBinarySwapFourRanksDepthWins(t *testing.T) {
	const numProc = 4
	const n = 16
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
			// Rank 0 is nearest (wins everywhere); verify it survives
			// compositing regardless of which piece a rank ends up with.
			depth := float32(rank + 1)
			im := solidDepth(n, depth, rank)
			res, err := Do(ep, g, im, fabric.Tag(0), wire.Options{})
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

	seen := make(map[int]bool)
	for rank, res := range results {
		seen[res.PieceIndex] = true
		dd, ok := res.Piece.(*img.DenseColorDepthImage)
		if !ok {
			t.Fatalf("rank %d: piece is %T, want *img.DenseColorDepthImage", rank, res.Piece)
		}
		for i, d := range dd.Depths() {
			if d != 1 {
				t.Errorf("rank %d piece pixel %d: depth %v, want 1 (rank 0 nearest should win everywhere)", rank, i, d)
			}
		}
		for i, c := range dd.Colors() {
			if c.R != 0 {
				t.Errorf("rank %d piece pixel %d: color R=%d, want 0 (rank 0's color)", rank, i, c.R)
			}
		}
	}
	if len(seen) != numProc {
		t.Fatalf("piece indices = %v, want %d distinct values", seen, numProc)
	}
}

// solidColor builds a dense color-only image of n pixels all at the
// given premultiplied color.
func solidColor(n int, c colorpix.RGBA8) img.Image {
	pixels := make([]colorpix.RGBA8, n)
	for i := range pixels {
		pixels[i] = c
	}
	return img.NewDenseColor(n, 1, 0, n, img.Viewport{MaxX: n, MaxY: 1}, pixels)
}

// TestDoBinarySwapColorOnlyLowerRankIsTop exercises the order-dependent
// blend path, which the depth-wins scenario above cannot: depth-min
// compositing is commutative in its two arguments, so it would pass
// whichever side of a pair Do treats as top. Two ranks with distinct
// partially transparent colors make the blend direction observable.
func TestDoBinarySwapColorOnlyLowerRankIsTop(t *testing.T) {
	const numProc = 2
	const n = 8
	top := colorpix.RGBA8{R: 200, A: 128}
	bottom := colorpix.RGBA8{B: 200, A: 128}
	want := colorpix.Over(top, bottom)

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
			var im img.Image
			if rank == 0 {
				im = solidColor(n, top)
			} else {
				im = solidColor(n, bottom)
			}
			res, err := Do(ep, g, im, fabric.Tag(0), wire.Options{})
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
	for rank, res := range results {
		dc, ok := res.Piece.(*img.DenseColorImage)
		if !ok {
			t.Fatalf("rank %d: piece is %T, want *img.DenseColorImage", rank, res.Piece)
		}
		for i, px := range dc.Pixels() {
			if !colorpix.Equal(px, want) {
				t.Errorf("rank %d pixel %d: got %+v, want %+v (lower rank's color composited as top)", rank, i, px, want)
			}
		}
	}
}

func TestDoRejectsNonPowerOfTwoGroup(t *testing.T) {
	f := fabric.New(3)
	g := group.All(3)
	ep := f.Endpoint(0)
	im := solidDepth(8, 1, 0)
	_, err := Do(ep, g, im, fabric.Tag(0), wire.Options{})
	if !img.IsKind(err, img.GroupConstraintViolated) {
		t.Errorf("Do with numProc=3: got %v, want GroupConstraintViolated", err)
	}
}

func TestReverseMixedRadixMatchesBitReverseForPowerOfTwo(t *testing.T) {
	radices := []int{2, 2, 2}
	for rank := 0; rank < 8; rank++ {
		got := reverseMixedRadix(rank, radices)
		want := 0
		bits := rank
		for i := 0; i < 3; i++ {
			want <<= 1
			want |= bits & 1
			bits >>= 1
		}
		if got != want {
			t.Errorf("reverseMixedRadix(%d, %v) = %d, want %d", rank, radices, got, want)
		}
	}
}
