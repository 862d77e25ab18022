// Package simulate drives a scheduler across N simulated ranks sharing
// one in-process fabric.Fabric, the way cmd/slcompose and the
// integration tests both exercise the compositing core without a real
// distributed-memory runtime.
package simulate

import (
	"fmt"
	"sync"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/group"
	"github.com/dstorm-vis/slcompose/internal/img"
	"github.com/dstorm-vis/slcompose/internal/logging"
	"github.com/dstorm-vis/slcompose/internal/metrics"
	"github.com/dstorm-vis/slcompose/internal/scheduler/binaryswap"
	"github.com/dstorm-vis/slcompose/internal/scheduler/directsend"
	"github.com/dstorm-vis/slcompose/internal/scheduler/radixk"
	"github.com/dstorm-vis/slcompose/internal/scheduler/swap23"
	"github.com/dstorm-vis/slcompose/internal/tree"
	"github.com/dstorm-vis/slcompose/internal/wire"
)

// Scheme identifies which scheduler a Run should use.
type Scheme int

const (
	BinarySwapBase Scheme = iota
	BinarySwapFold
	BinarySwapRemainder
	BinarySwapTelescoping
	BinarySwap234Schedule
	Swap23
	DirectSend
	RadixK
)

func (s Scheme) String() string {
	switch s {
	case BinarySwapBase:
		return "binary-swap"
	case BinarySwapFold:
		return "binary-swap-fold"
	case BinarySwapRemainder:
		return "binary-swap-remainder"
	case BinarySwapTelescoping:
		return "binary-swap-telescoping"
	case BinarySwap234Schedule:
		return "binary-swap-234"
	case Swap23:
		return "2-3-swap"
	case DirectSend:
		return "direct-send"
	case RadixK:
		return "radix-k"
	default:
		return "unknown"
	}
}

// Config parameterizes one composite run.
type Config struct {
	NumProc  int
	Scheme   Scheme
	TargetK  int // RadixK only; ignored otherwise
	Compress bool
	Recorder metrics.Recorder
}

// Painter produces rank's full local contribution image.
type Painter func(rank int) img.Image

// Piece is one participant's final result, tagged with the piece index
// it corresponds to in the image's left-to-right order.
type Piece struct {
	Index int
	Image img.Image
}

// Run executes cfg.Scheme across cfg.NumProc simulated ranks, each
// painted by painter, and returns every rank's final piece.
func Run(cfg Config, painter Painter) ([]Piece, error) {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop{}
	}
	f := fabric.New(cfg.NumProc)
	g := group.All(cfg.NumProc)
	opts := wire.Options{Compress: cfg.Compress}
	logging.Logger().Info("compose starting", "scheme", cfg.Scheme.String(), "numProc", cfg.NumProc)

	pieces := make([]Piece, cfg.NumProc)
	errs := make([]error, cfg.NumProc)
	var wg sync.WaitGroup

	var tr *tree.Node
	if cfg.Scheme == Swap23 {
		local := painter(0)
		tr = tree.Build(g, local.NumberOfPixels())
	}

	for rank := 0; rank < cfg.NumProc; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			ep := f.Endpoint(rank)
			local := painter(rank)

			var (
				piece img.Image
				index int
				err   error
			)
			switch cfg.Scheme {
			case BinarySwapBase:
				var res binaryswap.Result
				res, err = binaryswap.Do(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case BinarySwapFold:
				var res binaryswap.Result
				res, err = binaryswap.DoFold(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case BinarySwapRemainder:
				var res binaryswap.Result
				res, err = binaryswap.DoRemainder(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case BinarySwapTelescoping:
				var res binaryswap.Result
				res, err = binaryswap.DoTelescoping(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case BinarySwap234Schedule:
				var res binaryswap.Result
				res, err = binaryswap.DoSchedule234(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case Swap23:
				var res swap23.Result
				res, err = swap23.Do(ep, tr, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case DirectSend:
				var res directsend.Result
				res, err = directsend.Do(ep, g, local, fabric.Tag(0), opts)
				piece, index = res.Piece, res.PieceIndex
			case RadixK:
				targetK := cfg.TargetK
				if targetK < 2 {
					targetK = 2
				}
				var res radixk.Result
				res, err = radixk.Do(ep, g, local, fabric.Tag(0), targetK, opts)
				piece, index = res.Piece, res.PieceIndex
			default:
				err = fmt.Errorf("simulate: unknown scheme %v", cfg.Scheme)
			}

			pieces[rank] = Piece{Index: index, Image: piece}
			errs[rank] = err
			cfg.Recorder.Observe("pieces_composited", 1)
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("simulate: rank %d: %w", rank, err)
		}
	}
	logging.Logger().Info("compose finished", "scheme", cfg.Scheme.String())
	return pieces, nil
}

// AssembleColors orders pieces by Index and concatenates their pixels
// into one dense row, uncompressing any sparse pieces first.
func AssembleColors(pieces []Piece) []colorpix.RGBA8 {
	sorted := make([]Piece, len(pieces))
	copy(sorted, pieces)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Index < sorted[j-1].Index; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	var out []colorpix.RGBA8
	for _, p := range sorted {
		out = append(out, colorsOf(p.Image)...)
	}
	return out
}

func colorsOf(im img.Image) []colorpix.RGBA8 {
	switch v := im.(type) {
	case *img.DenseColorImage:
		return v.Pixels()
	case *img.DenseColorDepthImage:
		return v.Colors()
	case *img.SparseColorImage:
		return v.Uncompress().Pixels()
	case *img.SparseColorDepthImage:
		return v.Uncompress().Colors()
	default:
		return nil
	}
}
