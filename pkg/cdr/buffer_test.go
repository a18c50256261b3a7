package cdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTripPrimitives(t *testing.T) {
	buf := New(16)
	buf.WriteBool(true)
	buf.WriteU8(0xAB)
	buf.WriteI16(-1234)
	buf.WriteI32(42)
	buf.WriteI64(-9_000_000_000)
	buf.WriteF32(3.5)
	buf.WriteF64(2.71828)
	buf.WriteString("héllo wörld")
	buf.WriteString("")

	buf.Flip()

	gotBool, err := buf.ReadBool()
	assert.NoError(t, err)
	assert.True(t, gotBool)

	gotU8, err := buf.ReadU8()
	assert.NoError(t, err)
	assert.EqualValues(t, 0xAB, gotU8)

	gotI16, err := buf.ReadI16()
	assert.NoError(t, err)
	assert.EqualValues(t, -1234, gotI16)

	gotI32, err := buf.ReadI32()
	assert.NoError(t, err)
	assert.EqualValues(t, 42, gotI32)

	gotI64, err := buf.ReadI64()
	assert.NoError(t, err)
	assert.EqualValues(t, -9_000_000_000, gotI64)

	gotF32, err := buf.ReadF32()
	assert.NoError(t, err)
	assert.Equal(t, float32(3.5), gotF32)

	gotF64, err := buf.ReadF64()
	assert.NoError(t, err)
	assert.Equal(t, 2.71828, gotF64)

	gotStr, err := buf.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "héllo wörld", gotStr)

	gotEmpty, err := buf.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "", gotEmpty)
}

func TestEmptyStringWire(t *testing.T) {
	buf := New(16)
	buf.WriteString("")
	buf.Flip()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, buf.Bytes())

	s, err := buf.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestI32Wire(t *testing.T) {
	buf := New(4)
	buf.WriteI32(42)
	buf.Flip()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x2A}, buf.Bytes())
}

func TestStringWireEncoding(t *testing.T) {
	buf := New(8)
	buf.WriteString("bad")
	buf.Flip()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x03, 'b', 'a', 'd'}, buf.Bytes())
}

func TestGrowthPreservesContents(t *testing.T) {
	buf := New(4)
	var written []int32
	for i := int32(0); i < 100; i++ {
		buf.WriteI32(i)
		written = append(written, i)
	}
	buf.Flip()
	for _, want := range written {
		got, err := buf.ReadI32()
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestReadBeyondLimitFails(t *testing.T) {
	buf := New(4)
	buf.WriteI16(7)
	buf.Flip()
	pos := buf.Position()
	_, err := buf.ReadI32()
	assert.Error(t, err)
	var underflow *UnderflowError
	assert.ErrorAs(t, err, &underflow)
	assert.Equal(t, pos, buf.Position())
}

func TestSetPositionBeyondLimitFails(t *testing.T) {
	buf := New(8)
	buf.WriteI32(1)
	buf.Flip()
	err := buf.SetPosition(buf.Limit() + 1)
	assert.Error(t, err)
}

func TestSetLimitClampsPosition(t *testing.T) {
	buf := New(8)
	buf.WriteI64(1)
	assert.NoError(t, buf.SetLimit(4))
	assert.Equal(t, 4, buf.Position())
}

func TestClearResetsToFullWriteMode(t *testing.T) {
	buf := New(8)
	buf.WriteI32(1)
	buf.Flip()
	_, _ = buf.ReadI32()
	buf.Clear()
	assert.Equal(t, 0, buf.Position())
	assert.Equal(t, buf.Capacity(), buf.Limit())
}

type fakeHandle struct{ id string }

func (f fakeHandle) WireIdentity() string { return f.id }

func TestWriteReadObject(t *testing.T) {
	buf := New(16)
	buf.WriteObject(fakeHandle{id: "sess-1"})
	buf.WriteObject(nil)
	buf.Flip()

	got, err := ReadObject(buf, func(id string) fakeHandle { return fakeHandle{id: id} })
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", got.id)

	gotNull, err := ReadObject(buf, func(id string) fakeHandle { return fakeHandle{id: id} })
	assert.NoError(t, err)
	assert.Equal(t, "", gotNull.id)
}
