package crypto

import (
	"bytes"
	"testing"

	"github.com/tos-network/gquorum/common"
)

func TestKeccak256EmptyInput(t *testing.T) {
	want := common.FromHex("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if got := Keccak256(); !bytes.Equal(got, want) {
		t.Fatalf("keccak256(): have %x want %x", got, want)
	}
	if got := Keccak256Hash(); !bytes.Equal(got[:], want) {
		t.Fatalf("keccak256hash(): have %x want %x", got, want)
	}
}

func TestKeccak256Concatenates(t *testing.T) {
	if !bytes.Equal(Keccak256([]byte("ab"), []byte("c")), Keccak256([]byte("abc"))) {
		t.Fatalf("multi-part input must hash like its concatenation")
	}
}

func TestCreateProgramAddressSeedBoundaries(t *testing.T) {
	a := CreateProgramAddress([]byte("ab"), []byte("c"))
	b := CreateProgramAddress([]byte("a"), []byte("bc"))
	if a == b {
		t.Fatalf("seed boundaries must be part of the derivation")
	}
	if a != CreateProgramAddress([]byte("ab"), []byte("c")) {
		t.Fatalf("derivation is not deterministic")
	}
	if common.BytesToAddress(Keccak256([]byte("ab"), []byte("c"))) == a {
		t.Fatalf("program address collides with plain keccak")
	}
}
