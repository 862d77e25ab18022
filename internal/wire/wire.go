// Package wire implements the §6.2 wire format for image transfer: a
// fixed header message plus 1-4 tagged payload messages, with optional
// zstd compression of the bulkier dense/active payloads. The framing
// shape mirrors Image's ISendMetaData/IReceiveMetaData tagged-field
// protocol in the original source; the compression envelope (one flag
// byte, optional zstd stream) mirrors the real-world usage pattern in
// svanichkin-Babe's codec3.go.
package wire

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/fabric"
	"github.com/dstorm-vis/slcompose/internal/img"
)

// Field tags, offset from a scheduler-assigned per-transfer base tag.
const (
	fieldMeta = iota
	fieldColor
	fieldDepth
	fieldBackground
	fieldRunLengths
	fieldCount
)

func tagFor(base fabric.Tag, field int) fabric.Tag {
	return fabric.Tag(int(base)*fieldCount + field)
}

// Options controls wire-level behavior.
type Options struct {
	// Compress enables zstd compression of payloads above a small size
	// threshold. Off by default: many transfers (sparse, small tiles)
	// are already small enough that compression overhead isn't worth
	// paying.
	Compress bool
}

// Spec describes the shape a receiver must pre-size buffers to, known
// structurally from the scheduler's partitioning before any bytes
// arrive (the sender always shrinks its payload to fit beforehand).
type Spec struct {
	Width, Height          int
	RegionBegin, RegionEnd int
	Variant                img.Variant
}

func (s Spec) pixels() int { return s.RegionEnd - s.RegionBegin }

const headerSize = 32

func encodeHeader(im img.Image) []byte {
	buf := make([]byte, headerSize)
	put := func(i, v int) { binary.LittleEndian.PutUint32(buf[i*4:], uint32(int32(v))) }
	vp := im.Viewport()
	put(0, im.Width())
	put(1, im.Height())
	put(2, im.RegionBegin())
	put(3, im.RegionEnd())
	put(4, vp.MinX)
	put(5, vp.MinY)
	put(6, vp.MaxX)
	put(7, vp.MaxY)
	return buf
}

func decodeHeader(buf []byte) (width, height, rb, re int, vp img.Viewport) {
	get := func(i int) int { return int(int32(binary.LittleEndian.Uint32(buf[i*4:]))) }
	width, height, rb, re = get(0), get(1), get(2), get(3)
	vp = img.Viewport{MinX: get(4), MinY: get(5), MaxX: get(6), MaxY: get(7)}
	return
}

func encodeColors(pixels []colorpix.RGBA8) []byte {
	out := make([]byte, len(pixels)*4)
	for i, p := range pixels {
		out[i*4] = p.R
		out[i*4+1] = p.G
		out[i*4+2] = p.B
		out[i*4+3] = p.A
	}
	return out
}

func decodeColors(data []byte) []colorpix.RGBA8 {
	n := len(data) / 4
	out := make([]colorpix.RGBA8, n)
	for i := range out {
		out[i] = colorpix.RGBA8{R: data[i*4], G: data[i*4+1], B: data[i*4+2], A: data[i*4+3]}
	}
	return out
}

func encodeDepths(depths []float32) []byte {
	out := make([]byte, len(depths)*4)
	for i, d := range depths {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(d))
	}
	return out
}

func decodeDepths(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func encodeRuns(runs []img.RunLength) []byte {
	out := make([]byte, len(runs)*8)
	for i, r := range runs {
		binary.LittleEndian.PutUint32(out[i*8:], uint32(int32(r.Background)))
		binary.LittleEndian.PutUint32(out[i*8+4:], uint32(int32(r.Foreground)))
	}
	return out
}

func decodeRuns(data []byte) []img.RunLength {
	n := len(data) / 8
	out := make([]img.RunLength, n)
	for i := range out {
		out[i] = img.RunLength{
			Background: int(int32(binary.LittleEndian.Uint32(data[i*8:]))),
			Foreground: int(int32(binary.LittleEndian.Uint32(data[i*8+4:]))),
		}
	}
	return out
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil)
		zstdDecoder, _ = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder
}

// compressThreshold is the payload size below which compression overhead
// isn't worth paying.
const compressThreshold = 256

// compressSlack is the safety margin added to a pre-sized receive buffer
// to accommodate zstd's small per-frame overhead on already-compact
// payloads; zstd never expands data by more than this in practice.
const compressSlack = 64

func frame(data []byte, compress bool) []byte {
	if !compress || len(data) < compressThreshold {
		out := make([]byte, len(data)+1)
		out[0] = 0
		copy(out[1:], data)
		return out
	}
	enc, _ := zstdCodecs()
	compressed := enc.EncodeAll(data, make([]byte, 0, len(data)))
	out := make([]byte, len(compressed)+1)
	out[0] = 1
	copy(out[1:], compressed)
	return out
}

func unframe(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, nil
	}
	payload := framed[1:]
	if framed[0] == 0 {
		return payload, nil
	}
	_, dec := zstdCodecs()
	return dec.DecodeAll(payload, nil)
}

// PostSend posts every message a send of im requires (header plus
// variant-specific payloads) and returns all requests, in the order the
// original source designates: the receiver treats the last element as the
// "final" handle for wait-any purposes and waits on the rest only after
// that one completes.
func PostSend(ep *fabric.Endpoint, peer int, tagBase fabric.Tag, im img.Image, opts Options) []*fabric.Request {
	var reqs []*fabric.Request
	send := func(field int, payload []byte) {
		reqs = append(reqs, ep.ISend(peer, tagFor(tagBase, field), payload))
	}
	send(fieldMeta, encodeHeader(im))

	switch v := im.(type) {
	case *img.DenseColorImage:
		send(fieldColor, frame(encodeColors(v.Pixels()), opts.Compress))
	case *img.DenseColorDepthImage:
		send(fieldColor, frame(encodeColors(v.Colors()), opts.Compress))
		send(fieldDepth, frame(encodeDepths(v.Depths()), opts.Compress))
	case *img.SparseColorImage:
		bg := v.Background()
		send(fieldBackground, encodeColors([]colorpix.RGBA8{bg}))
		send(fieldRunLengths, frame(encodeRuns(v.Runs()), opts.Compress))
		send(fieldColor, frame(encodeColors(v.ActivePixels()), opts.Compress))
	case *img.SparseColorDepthImage:
		bg := v.Background()
		bgBuf := append(encodeColors([]colorpix.RGBA8{bg.Color}), encodeDepths([]float32{bg.Depth})...)
		send(fieldBackground, bgBuf)
		send(fieldRunLengths, frame(encodeRuns(v.Runs()), opts.Compress))
		send(fieldColor, frame(encodeColors(v.ActiveColors()), opts.Compress))
		send(fieldDepth, frame(encodeDepths(v.ActiveDepths()), opts.Compress))
	default:
		panic("wire: unknown image implementation")
	}
	return reqs
}

// Incoming is a posted, not-yet-assembled receive of one image.
type Incoming struct {
	spec Spec

	metaBuf, colorBuf, depthBuf, bgBuf, runsBuf []byte
	metaReq, colorReq, depthReq, bgReq, runsReq *fabric.Request

	all []*fabric.Request

	// Final is the designated handle for a scheduler's wait-any set.
	// Once it completes, the caller must still wait for the rest of
	// this image's sub-messages (see Finish) before the image is ready.
	Final *fabric.Request
	rest  []*fabric.Request
}

// PostRecv posts non-blocking receives for every message an image of the
// given Spec requires, pre-sized to the maximum feasible payload.
func PostRecv(ep *fabric.Endpoint, peer int, tagBase fabric.Tag, spec Spec) *Incoming {
	pixels := spec.pixels()
	in := &Incoming{spec: spec}

	in.metaBuf = make([]byte, headerSize)
	in.metaReq = ep.IRecv(peer, tagFor(tagBase, fieldMeta), in.metaBuf)
	in.all = append(in.all, in.metaReq)

	maxColorDepth := pixels*4 + compressSlack + 1
	maxRuns := (pixels/2+1)*8 + compressSlack + 1

	switch spec.Variant {
	case img.VariantDenseColor:
		in.colorBuf = make([]byte, maxColorDepth)
		in.colorReq = ep.IRecv(peer, tagFor(tagBase, fieldColor), in.colorBuf)
		in.all = append(in.all, in.colorReq)

	case img.VariantDenseColorDepth:
		in.colorBuf = make([]byte, maxColorDepth)
		in.depthBuf = make([]byte, maxColorDepth)
		in.colorReq = ep.IRecv(peer, tagFor(tagBase, fieldColor), in.colorBuf)
		in.depthReq = ep.IRecv(peer, tagFor(tagBase, fieldDepth), in.depthBuf)
		in.all = append(in.all, in.colorReq, in.depthReq)

	case img.VariantSparseColor:
		in.bgBuf = make([]byte, 4)
		in.runsBuf = make([]byte, maxRuns)
		in.colorBuf = make([]byte, maxColorDepth)
		in.bgReq = ep.IRecv(peer, tagFor(tagBase, fieldBackground), in.bgBuf)
		in.runsReq = ep.IRecv(peer, tagFor(tagBase, fieldRunLengths), in.runsBuf)
		in.colorReq = ep.IRecv(peer, tagFor(tagBase, fieldColor), in.colorBuf)
		in.all = append(in.all, in.bgReq, in.runsReq, in.colorReq)

	case img.VariantSparseColorDepth:
		in.bgBuf = make([]byte, 8)
		in.runsBuf = make([]byte, maxRuns)
		in.colorBuf = make([]byte, maxColorDepth)
		in.depthBuf = make([]byte, maxColorDepth)
		in.bgReq = ep.IRecv(peer, tagFor(tagBase, fieldBackground), in.bgBuf)
		in.runsReq = ep.IRecv(peer, tagFor(tagBase, fieldRunLengths), in.runsBuf)
		in.colorReq = ep.IRecv(peer, tagFor(tagBase, fieldColor), in.colorBuf)
		in.depthReq = ep.IRecv(peer, tagFor(tagBase, fieldDepth), in.depthBuf)
		in.all = append(in.all, in.bgReq, in.runsReq, in.colorReq, in.depthReq)
	}

	in.Final = in.all[len(in.all)-1]
	in.rest = in.all[:len(in.all)-1]
	return in
}

// Finish waits for every remaining sub-message of this image (the caller
// is expected to have already waited for Final, typically via wait-any)
// and assembles the decoded Image.
func (in *Incoming) Finish() (img.Image, error) {
	fabric.WaitAll(in.rest)

	width, height, rb, re, vp := decodeHeader(in.metaBuf[:in.metaReq.N()])
	if width != in.spec.Width || height != in.spec.Height || (re-rb) != in.spec.pixels() {
		return nil, img.NewError(img.TransferPreconditionViolated, "wire: received image shape does not match the posted receive spec")
	}

	switch in.spec.Variant {
	case img.VariantDenseColor:
		raw, err := unframe(in.colorBuf[:in.colorReq.N()])
		if err != nil {
			return nil, err
		}
		return img.NewDenseColor(width, height, rb, re, vp, decodeColors(raw)), nil

	case img.VariantDenseColorDepth:
		rawColor, err := unframe(in.colorBuf[:in.colorReq.N()])
		if err != nil {
			return nil, err
		}
		rawDepth, err := unframe(in.depthBuf[:in.depthReq.N()])
		if err != nil {
			return nil, err
		}
		return img.NewDenseColorDepth(width, height, rb, re, vp, decodeColors(rawColor), decodeDepths(rawDepth)), nil

	case img.VariantSparseColor:
		bg := decodeColors(in.bgBuf[:in.bgReq.N()])[0]
		rawRuns, err := unframe(in.runsBuf[:in.runsReq.N()])
		if err != nil {
			return nil, err
		}
		rawColor, err := unframe(in.colorBuf[:in.colorReq.N()])
		if err != nil {
			return nil, err
		}
		return img.NewSparseColor(width, height, rb, re, vp, decodeRuns(rawRuns), decodeColors(rawColor), bg), nil

	case img.VariantSparseColorDepth:
		bgBytes := in.bgBuf[:in.bgReq.N()]
		bg := img.Background{Color: decodeColors(bgBytes[:4])[0], Depth: decodeDepths(bgBytes[4:8])[0]}
		rawRuns, err := unframe(in.runsBuf[:in.runsReq.N()])
		if err != nil {
			return nil, err
		}
		rawColor, err := unframe(in.colorBuf[:in.colorReq.N()])
		if err != nil {
			return nil, err
		}
		rawDepth, err := unframe(in.depthBuf[:in.depthReq.N()])
		if err != nil {
			return nil, err
		}
		return img.NewSparseColorDepth(width, height, rb, re, vp, decodeRuns(rawRuns), decodeColors(rawColor), decodeDepths(rawDepth), bg), nil
	}
	panic("wire: unreachable variant")
}
