// Package coveragetest builds minimal class files for tests.
package coveragetest

import (
	"bytes"
	"encoding/binary"
)

// ClassBytes returns a well-formed class file for internalName (e.g.
// "com/acme/Foo"). A non-empty sourceFile adds a SourceFile attribute. salt
// is stored in an extra constant so that two classes with the same name can
// have different bytes (and therefore different ids).
func ClassBytes(internalName, sourceFile string, salt int32) []byte {
	var b bytes.Buffer
	w16 := func(v uint16) { _ = binary.Write(&b, binary.BigEndian, v) }
	w32 := func(v uint32) { _ = binary.Write(&b, binary.BigEndian, v) }
	utf8 := func(s string) {
		b.WriteByte(1)
		w16(uint16(len(s)))
		b.WriteString(s)
	}

	w32(0xCAFEBABE)
	w16(0)  // minor
	w16(52) // major (Java 8)

	// #1 Utf8 name, #2 Class #1, #3 Utf8 java/lang/Object, #4 Class #3,
	// #5 Integer salt, #6 Long 0 (two slots: #6,#7), #8 Utf8 "SourceFile",
	// #9 Utf8 sourceFile
	count := uint16(8)
	if sourceFile != "" {
		count = 10
	}
	w16(count)
	utf8(internalName)
	b.WriteByte(7)
	w16(1)
	utf8("java/lang/Object")
	b.WriteByte(7)
	w16(3)
	b.WriteByte(3)
	w32(uint32(salt))
	b.WriteByte(5)
	w32(0)
	w32(0)
	if sourceFile != "" {
		utf8("SourceFile")
		utf8(sourceFile)
	}

	w16(0x0021) // public super
	w16(2)      // this
	w16(4)      // super
	w16(0)      // interfaces
	w16(0)      // fields
	w16(0)      // methods
	if sourceFile == "" {
		w16(0)
		return b.Bytes()
	}
	w16(1)
	w16(8)
	w32(2)
	w16(9)
	return b.Bytes()
}
