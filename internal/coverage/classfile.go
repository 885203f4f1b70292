package coverage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat marks input that is not a class file.
	ErrUnsupportedFormat = errors.New("unsupported class file format")
	// ErrTruncated marks a class file that ends early.
	ErrTruncated = errors.New("truncated class file")
)

const classMagic = 0xCAFEBABE

// classInfo is what the engine needs from a class file header.
type classInfo struct {
	Major      uint16
	Name       string
	SourceFile string
}

type classReader struct {
	b   []byte
	off int
	err error
}

func (r *classReader) u1() uint8 {
	if r.err != nil || r.off+1 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *classReader) u2() uint16 {
	if r.err != nil || r.off+2 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *classReader) u4() uint32 {
	if r.err != nil || r.off+4 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *classReader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.off+n > len(r.b) {
		r.err = ErrTruncated
		return nil
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

func (r *classReader) skip(n int) { r.bytes(n) }

type cpEntry struct {
	tag  uint8
	utf8 string
	ref  uint16 // name_index of a CONSTANT_Class
}

func parseClassInfo(data []byte) (classInfo, error) {
	r := &classReader{b: data}
	if r.u4() != classMagic {
		return classInfo{}, ErrUnsupportedFormat
	}
	r.u2() // minor
	info := classInfo{Major: r.u2()}

	count := int(r.u2())
	pool := make([]cpEntry, count)
	for i := 1; i < count && r.err == nil; i++ {
		tag := r.u1()
		pool[i].tag = tag
		switch tag {
		case 1:
			n := int(r.u2())
			pool[i].utf8 = string(r.bytes(n))
		case 7:
			pool[i].ref = r.u2()
		case 8, 16, 19, 20:
			r.skip(2)
		case 15:
			r.skip(3)
		case 3, 4, 9, 10, 11, 12, 17, 18:
			r.skip(4)
		case 5, 6:
			r.skip(8)
			i++ // eight-byte constants take two slots
		default:
			return classInfo{}, fmt.Errorf("%w: constant pool tag %d at index %d", ErrUnsupportedFormat, tag, i)
		}
	}

	utf8At := func(idx uint16) (string, bool) {
		if int(idx) <= 0 || int(idx) >= len(pool) || pool[idx].tag != 1 {
			return "", false
		}
		return pool[idx].utf8, true
	}

	r.u2() // access flags
	this := r.u2()
	if r.err != nil {
		return classInfo{}, r.err
	}
	if int(this) <= 0 || int(this) >= len(pool) || pool[this].tag != 7 {
		return classInfo{}, fmt.Errorf("%w: bad this_class index %d", ErrUnsupportedFormat, this)
	}
	name, ok := utf8At(pool[this].ref)
	if !ok {
		return classInfo{}, fmt.Errorf("%w: bad class name index %d", ErrUnsupportedFormat, pool[this].ref)
	}
	info.Name = name

	r.u2() // super class
	r.skip(2 * int(r.u2()))

	skipMembers := func() {
		members := int(r.u2())
		for i := 0; i < members && r.err == nil; i++ {
			r.skip(6)
			attrs := int(r.u2())
			for j := 0; j < attrs && r.err == nil; j++ {
				r.skip(2)
				r.skip(int(r.u4()))
			}
		}
	}
	skipMembers() // fields
	skipMembers() // methods

	attrs := int(r.u2())
	for i := 0; i < attrs && r.err == nil; i++ {
		attrName, _ := utf8At(r.u2())
		length := int(r.u4())
		body := r.bytes(length)
		if attrName == "SourceFile" && len(body) == 2 {
			if sf, ok := utf8At(binary.BigEndian.Uint16(body)); ok {
				info.SourceFile = sf
			}
		}
	}
	if r.err != nil {
		return classInfo{}, r.err
	}
	return info, nil
}
