package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("tiercache: corrupt record")
	magic4     = [...]byte{'T', 'I', 'E', 'R'}
)

const recordHeader = 4 + 1 + 1 + 8 + 2

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record is a stored entity plus the index value it was filed under, so a
// store can move index membership without decoding the payload.
type Record struct {
	Rev     uint64
	Index   string
	Payload []byte
}

// EncodeRecord frames a record:
//
//	magic(4) | ver(1) | kind(1=record) | rev(u64 be) | ilen(u16 be) | index(ilen) | vlen(u32 be) | payload(vlen)
func EncodeRecord(r Record) ([]byte, error) {
	if len(r.Index) > 0xFFFF {
		return nil, errors.New("tiercache: index value too long")
	}
	var buf bytes.Buffer
	buf.Grow(recordHeader + len(r.Index) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], r.Rev)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(r.Index)))
	buf.Write(u2[:])
	buf.WriteString(r.Index)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)
	return buf.Bytes(), nil
}

// DecodeRecord parses a framed record. Trailing bytes are rejected.
// The returned Payload aliases b.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < recordHeader || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return Record{}, ErrCorrupt
	}
	off := 6

	rev := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	ilen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if ilen > len(b)-off {
		return Record{}, ErrCorrupt
	}
	index := string(b[off : off+ilen])
	off += ilen

	if off+4 > len(b) {
		return Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Record{}, ErrCorrupt
	}
	return Record{Rev: rev, Index: index, Payload: b[off : off+vlen]}, nil
}
