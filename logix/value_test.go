package logix

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestTagValueInt(t *testing.T) {
	v := &TagValue{DataType: TypeDINT, Bytes: []byte{0xFF, 0xFF, 0xFF, 0xFF}}
	got, err := v.Int()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -1 {
		t.Errorf("Int() = %d, want -1", got)
	}
}

func TestTagValueFloat(t *testing.T) {
	bits := math.Float32bits(3.25)
	bytes := binary.LittleEndian.AppendUint32(nil, bits)
	v := &TagValue{DataType: TypeREAL, Bytes: bytes}

	got, err := v.Float()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3.25 {
		t.Errorf("Float() = %v, want 3.25", got)
	}
}

func TestTagValueString(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 5)
	data = append(data, []byte("HELLO")...)
	v := &TagValue{DataType: TypeSTRING, Bytes: data}

	got, err := v.String()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("String() = %q, want HELLO", got)
	}
}

func TestTagValueBool(t *testing.T) {
	v := &TagValue{DataType: TypeBOOL, Bytes: []byte{1}}
	got, err := v.Bool()
	if err != nil || !got {
		t.Errorf("Bool() = %v, %v, want true, nil", got, err)
	}
}

func TestTagValueTypeMismatch(t *testing.T) {
	v := &TagValue{DataType: TypeBOOL, Bytes: []byte{1}}
	if _, err := v.Int(); err == nil {
		t.Fatal("expected type mismatch error, got nil")
	}
}

func TestTagValuePropagatesPerTagError(t *testing.T) {
	wantErr := errors.New("tag not found")
	v := &TagValue{Error: wantErr}
	if _, err := v.Int(); err != wantErr {
		t.Errorf("Int() error = %v, want %v", err, wantErr)
	}
	if v.GoValue() != nil {
		t.Error("GoValue() should be nil when the tag has a per-tag error")
	}
}

func TestGoValueDispatchesByBaseType(t *testing.T) {
	v := &TagValue{DataType: TypeDINT | TypeArrayMask, Bytes: []byte{0x02, 0x00, 0x00, 0x00}}
	got, ok := v.GoValue().(int64)
	if !ok || got != 2 {
		t.Errorf("GoValue() = %v (%T), want int64(2)", v.GoValue(), v.GoValue())
	}
}
