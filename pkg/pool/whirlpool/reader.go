package whirlpool

import (
	"encoding/binary"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// accountReader walks a little-endian account buffer. Callers check the length up front, so
// reads never run past the end.
type accountReader struct {
	data []byte
	off  int
}

func (r *accountReader) bytes(n int) []byte {
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *accountReader) bool() bool {
	return r.bytes(1)[0] != 0
}

func (r *accountReader) u8() uint8 {
	return r.bytes(1)[0]
}

func (r *accountReader) u16() uint16 {
	return binary.LittleEndian.Uint16(r.bytes(2))
}

func (r *accountReader) i32() int32 {
	return int32(binary.LittleEndian.Uint32(r.bytes(4)))
}

func (r *accountReader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.bytes(8))
}

func (r *accountReader) u128() uint128.Uint128 {
	return uint128.FromBytes(r.bytes(16))
}

func (r *accountReader) i128() cosmath.Int {
	return fixedpoint.Int128FromLE(r.bytes(16))
}

func (r *accountReader) pubkey() solana.PublicKey {
	return solana.PublicKeyFromBytes(r.bytes(32))
}

// accountWriter is the inverse of accountReader, used to produce account snapshots.
type accountWriter struct {
	buf []byte
}

func (w *accountWriter) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *accountWriter) bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *accountWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *accountWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *accountWriter) i32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *accountWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *accountWriter) u128(v uint128.Uint128) {
	var b [16]byte
	v.PutBytes(b[:])
	w.buf = append(w.buf, b[:]...)
}

func (w *accountWriter) i128(v cosmath.Int) {
	var b [16]byte
	fixedpoint.PutInt128LE(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *accountWriter) pubkey(pk solana.PublicKey) {
	w.buf = append(w.buf, pk[:]...)
}
