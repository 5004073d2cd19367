// Package arch holds the small set of architecture-specific facts fatigue-go
// describes: native word size (the unit of a ptrace word transfer), pointer
// size, and byte order. The ELF parser checks an image's class against
// Host's pointer size; the PE parser and the memory access back-ends do not
// consult this package.
package arch

import "encoding/binary"

// Architecture describes the width and byte order of the host (tracer)
// process, which is assumed to match the target's bitness — fatigue-go does
// not support a 32-bit tracer attached to a 64-bit target or vice versa.
type Architecture struct {
	// WordSize is the size in bytes of a single ptrace PEEKDATA/POKEDATA
	// transfer unit on this architecture.
	WordSize int
	// PointerSize is the size in bytes of a pointer/address.
	PointerSize int
	// ByteOrder is the byte order used for integers and pointers.
	ByteOrder binary.ByteOrder
}

// AMD64 describes x86-64, the only architecture fatigue-go has been run
// against (targets are Wine/Proton-hosted Windows PE binaries or native ELF
// binaries, both overwhelmingly amd64 in practice).
var AMD64 = Architecture{
	WordSize:    8,
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}

// I386 describes x86, kept for 32-bit targets (older Windows titles under
// Wine, or a 32-bit ELF build).
var I386 = Architecture{
	WordSize:    4,
	PointerSize: 4,
	ByteOrder:   binary.LittleEndian,
}

// Host is the architecture of the process fatigue-go itself is compiled for.
// The ELF parser accepts only images whose class matches Host's pointer
// size.
var Host = AMD64
