package wire

import (
	"testing"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/img"
)

func TestDenseColorRoundTrip(t *testing.T) {
	pixels := make([]colorpix.RGBA8, 50)
	for i := range pixels {
		pixels[i] = colorpix.RGBA8{R: uint8(i), A: 255}
	}
	src := img.NewDenseColor(50, 1, 0, 50, img.Viewport{MaxX: 50, MaxY: 1}, pixels)

	f := fabric.New(2)
	sender, receiver := f.Endpoint(0), f.Endpoint(1)

	spec := Spec{Width: 50, Height: 1, RegionBegin: 0, RegionEnd: 50, Variant: img.VariantDenseColor}
	in := PostRecv(receiver, 0, fabric.Tag(1), spec)
	PostSend(sender, 1, fabric.Tag(1), src, Options{})

	in.Final.Wait()
	got, err := in.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	gotDense := got.(*img.DenseColorImage)
	for i, p := range gotDense.Pixels() {
		if p != pixels[i] {
			t.Errorf("pixel %d: got %+v, want %+v", i, p, pixels[i])
		}
	}
}

func TestSparseColorRoundTripWithCompression(t *testing.T) {
	bg := colorpix.RGBA8{A: 0}
	fg := colorpix.RGBA8{R: 200, A: 255}
	dense := make([]colorpix.RGBA8, 2000)
	for i := range dense {
		if i%20 == 0 {
			dense[i] = fg
		} else {
			dense[i] = bg
		}
	}
	denseImg := img.NewDenseColor(2000, 1, 0, 2000, img.Viewport{MaxX: 2000, MaxY: 1}, dense)
	sparse := img.NewSparseColorFromDense(denseImg, bg)

	f := fabric.New(2)
	sender, receiver := f.Endpoint(0), f.Endpoint(1)

	spec := Spec{Width: 2000, Height: 1, RegionBegin: 0, RegionEnd: 2000, Variant: img.VariantSparseColor}
	in := PostRecv(receiver, 0, fabric.Tag(2), spec)
	PostSend(sender, 1, fabric.Tag(2), sparse, Options{Compress: true})

	in.Final.Wait()
	got, err := in.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	gotSparse := got.(*img.SparseColorImage)
	gotDense := gotSparse.Uncompress().Pixels()
	for i, p := range gotDense {
		if p != dense[i] {
			t.Errorf("pixel %d: got %+v, want %+v", i, p, dense[i])
		}
	}
}

func TestShapeMismatchIsTransferPrecondition(t *testing.T) {
	pixels := make([]colorpix.RGBA8, 10)
	src := img.NewDenseColor(10, 1, 0, 10, img.Viewport{}, pixels)

	f := fabric.New(2)
	sender, receiver := f.Endpoint(0), f.Endpoint(1)

	// Receiver expects a different region length than the sender posts.
	spec := Spec{Width: 10, Height: 1, RegionBegin: 0, RegionEnd: 5, Variant: img.VariantDenseColor}
	in := PostRecv(receiver, 0, fabric.Tag(3), spec)
	PostSend(sender, 1, fabric.Tag(3), src, Options{})

	in.Final.Wait()
	_, err := in.Finish()
	if !img.IsKind(err, img.TransferPreconditionViolated) {
		t.Errorf("Finish with mismatched shape: got %v, want TransferPreconditionViolated", err)
	}
}
