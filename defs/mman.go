package defs

// mapping protections
const (
	PROT_NONE  int = 0x0
	PROT_READ  int = 0x1
	PROT_WRITE int = 0x2
	PROT_EXEC  int = 0x4
)

// mapping flags. MAP_SHARED and MAP_PRIVATE are mutually exclusive.
const (
	MAP_SHARED  int = 0x1
	MAP_PRIVATE int = 0x2
	MAP_FIXED   int = 0x10
	MAP_ANON    int = 0x20
)
