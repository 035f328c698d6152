package wire

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, r Record) []byte {
	t.Helper()
	b, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("EncodeRecord error: %v", err)
	}
	return b
}

func TestRecordRoundTrip(t *testing.T) {
	cases := []Record{
		{Rev: 0, Index: "", Payload: nil},
		{Rev: 42, Index: "player-1", Payload: []byte("hello")},
		{Rev: math.MaxUint64, Index: strings.Repeat("x", 300), Payload: []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got, err := DecodeRecord(mustEncode(t, tc))
		if err != nil {
			t.Fatalf("DecodeRecord(%+v): %v", tc, err)
		}
		if got.Rev != tc.Rev || got.Index != tc.Index {
			t.Fatalf("header mismatch: got rev=%d index=%q want rev=%d index=%q", got.Rev, got.Index, tc.Rev, tc.Index)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestRecordRejectsTrailingBytes(t *testing.T) {
	enc := mustEncode(t, Record{Rev: 7, Index: "k", Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := DecodeRecord(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestRecordCorruptHeaders(t *testing.T) {
	enc := mustEncode(t, Record{Rev: 1, Index: "idx", Payload: []byte("abc")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := DecodeRecord(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeRecord(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindRecord + 1
	if _, err := DecodeRecord(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// index length pointing past the buffer
	badIlen := append([]byte(nil), enc...)
	badIlen[14], badIlen[15] = 0xFF, 0xFF
	if _, err := DecodeRecord(badIlen); err == nil {
		t.Fatalf("expected error on oversized index length")
	}

	if _, err := DecodeRecord(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
	if _, err := DecodeRecord([]byte("TIER")); err == nil {
		t.Fatalf("expected error on short buffer")
	}
}

func TestEncodeRecordIndexTooLong(t *testing.T) {
	if _, err := EncodeRecord(Record{Index: strings.Repeat("a", 0x10000)}); err == nil {
		t.Fatalf("expected error for index longer than u16")
	}
}
