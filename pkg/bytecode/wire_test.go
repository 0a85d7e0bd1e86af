package bytecode

import (
	"bytes"
	"testing"
)

func TestContainerRoundTrip(t *testing.T) {
	orig := NewAssembler().ConstantPool("a").Push(Const(0)).Op(OpTrace).
		MustBuffer(WithName("frame2"), WithVersion(8))

	data, err := MarshalContainer(orig)
	if err != nil {
		t.Fatalf("MarshalContainer: %v", err)
	}
	got, err := UnmarshalContainer(data)
	if err != nil {
		t.Fatalf("UnmarshalContainer: %v", err)
	}
	if got.Name() != "frame2" || got.Version() != 8 || !bytes.Equal(got.Code(), orig.Code()) {
		t.Errorf("got %q v%d", got.Name(), got.Version())
	}
	// The implicit dictionary is rebuilt from the pool.
	if got.Dictionary(0) != "a" {
		t.Errorf("Dictionary(0) = %q", got.Dictionary(0))
	}
}

func TestContainerKeepsExplicitDictionary(t *testing.T) {
	orig := NewAssembler().Push(Const(1)).MustBuffer(WithDictionary([]string{"x", "y"}))
	data, err := MarshalContainer(orig)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalContainer(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.DictionaryLen() != 2 || got.Dictionary(1) != "y" {
		t.Errorf("dictionary = %v", got.InitialDictionary())
	}
}

func TestContainerIsCanonical(t *testing.T) {
	b := NewAssembler().Op(OpPlay).MustBuffer(WithName("n"))
	first, _ := MarshalContainer(b)
	second, _ := MarshalContainer(b)
	if !bytes.Equal(first, second) {
		t.Error("encoding is not deterministic")
	}
}

func TestUnmarshalContainerRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalContainer([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected an error")
	}
}
