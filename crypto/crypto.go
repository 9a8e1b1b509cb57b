// Copyright 2024 The gtos Authors
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package crypto

import (
	"encoding/binary"
	"hash"

	"github.com/tos-network/gquorum/common"
	"golang.org/x/crypto/sha3"
)

// programAddressTag prefixes every derived program address so that derived
// addresses never collide with a plain Keccak256 of the same seed bytes.
const programAddressTag = "gtos.program.address"

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state. Read is faster than Sum
// because it doesn't copy the internal state, but also modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a new KeccakState
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(b)
	return b
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:])
	return h
}

// CreateProgramAddress derives a key-less address from an ordered list of seeds.
// Each seed is length-prefixed so ("ab","c") and ("a","bc") never collide.
func CreateProgramAddress(seeds ...[]byte) common.Address {
	var l [8]byte
	d := NewKeccakState()
	d.Write([]byte(programAddressTag))
	for _, seed := range seeds {
		binary.BigEndian.PutUint64(l[:], uint64(len(seed)))
		d.Write(l[:])
		d.Write(seed)
	}
	var a common.Address
	d.Read(a[:])
	return a
}
