package asm

import (
	"fmt"
	"math"
)

// Constant pool tags written by the assembler.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagLong               = 5
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagInvokeDynamic      = 18
)

// pool is a constant pool under construction. Identical entries are shared.
type pool struct {
	w     writer
	next  uint16
	index map[string]uint16
}

func newPool() *pool {
	return &pool{next: 1, index: make(map[string]uint16)}
}

func (p *pool) add(key string, wide bool, encode func(w *writer)) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	if p.next == math.MaxUint16 {
		panic(errPoolFull)
	}
	i := p.next
	encode(&p.w)
	p.next++
	if wide {
		p.next++
	}
	p.index[key] = i
	return i
}

func (p *pool) utf8(s string) uint16 {
	return p.add("utf8:"+s, false, func(w *writer) {
		w.u8(tagUtf8)
		w.u16(uint16(len(s)))
		w.raw([]byte(s))
	})
}

func (p *pool) class(name string) uint16 {
	ref := p.utf8(name)
	return p.add("class:"+name, false, func(w *writer) {
		w.u8(tagClass)
		w.u16(ref)
	})
}

func (p *pool) str(s string) uint16 {
	ref := p.utf8(s)
	return p.add("string:"+s, false, func(w *writer) {
		w.u8(tagString)
		w.u16(ref)
	})
}

func (p *pool) integer(v int32) uint16 {
	return p.add(fmt.Sprintf("int:%d", v), false, func(w *writer) {
		w.u8(tagInteger)
		w.u32(uint32(v))
	})
}

func (p *pool) long(v int64) uint16 {
	return p.add(fmt.Sprintf("long:%d", v), true, func(w *writer) {
		w.u8(tagLong)
		w.u32(uint32(uint64(v) >> 32))
		w.u32(uint32(v))
	})
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.add("nat:"+name+":"+desc, false, func(w *writer) {
		w.u8(tagNameAndType)
		w.u16(n)
		w.u16(d)
	})
}

func (p *pool) member(tag uint8, owner, name, desc string) uint16 {
	c, nat := p.class(owner), p.nameAndType(name, desc)
	return p.add(fmt.Sprintf("ref%d:%s.%s:%s", tag, owner, name, desc), false, func(w *writer) {
		w.u8(tag)
		w.u16(c)
		w.u16(nat)
	})
}

func (p *pool) invokeDynamic(name, desc string) uint16 {
	nat := p.nameAndType(name, desc)
	return p.add("indy:"+name+":"+desc, false, func(w *writer) {
		w.u8(tagInvokeDynamic)
		w.u16(0) // bootstrap method
		w.u16(nat)
	})
}

func (p *pool) writeTo(w *writer) {
	w.u16(p.next)
	w.raw(p.w.buf.Bytes())
}
