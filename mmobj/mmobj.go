// Package mmobj implements memory objects: the page sources that back
// virtual memory regions. An anonymous object hands out zero-filled
// pages; a shadow object overlays a base object and copies pages up on
// first write, which is how private mappings and fork get their
// copy-on-write behavior.
package mmobj

import "sync/atomic"

import "weenix/defs"

// Mmobj_i is the capability surface a region needs from its backing
// store. Objects are shared and refcounted; each region owns exactly
// one reference.
type Mmobj_i interface {
	// Id returns an opaque identity for diagnostics.
	Id() int
	// Ref takes an additional reference. It cannot fail.
	Ref()
	// Put releases one reference; the last release frees the
	// object's resident pages.
	Put()
	// Refcnt reports the current reference count.
	Refcnt() int
	// Lookuppage returns the frame for the given object page index,
	// materializing it if needed. forwrite warns the object that the
	// caller will modify the page.
	Lookuppage(pgn uint, forwrite bool) (*Pframe_t, defs.Err_t)
	// Bottom returns the object at the bottom of this object's
	// shadow chain; for a bottom object it is the object itself.
	Bottom() Mmobj_i
	// Addvma and Rmvma maintain the bottom object's list of regions
	// mapping the chain.
	Addvma(ol *Olink_t)
	Rmvma(ol *Olink_t)
}

var idgen atomic.Int64

func mkid() int {
	return int(idgen.Add(1))
}

// Olink_t links a region into its bottom object's region list. The
// zero value is an unlinked node.
type Olink_t struct {
	next, prev *Olink_t
}

// Linked reports whether the node is on a list.
func (ol *Olink_t) Linked() bool {
	return ol.next != nil
}

// vmalist_t is a ring of Olink_t nodes with a sentinel head.
type vmalist_t struct {
	head Olink_t
	n    int
}

func (vl *vmalist_t) init() {
	if vl.head.next == nil {
		vl.head.next = &vl.head
		vl.head.prev = &vl.head
	}
}

func (vl *vmalist_t) insert(ol *Olink_t) {
	vl.init()
	if ol.Linked() {
		panic("olink already linked")
	}
	ol.prev = vl.head.prev
	ol.next = &vl.head
	vl.head.prev.next = ol
	vl.head.prev = ol
	vl.n++
}

func (vl *vmalist_t) remove(ol *Olink_t) {
	if !ol.Linked() {
		panic("olink not linked")
	}
	ol.prev.next = ol.next
	ol.next.prev = ol.prev
	ol.next, ol.prev = nil, nil
	vl.n--
}

func (vl *vmalist_t) len() int {
	return vl.n
}
