// Command vmmapinfo drives an address space through a scripted set of
// mapping operations and renders the resulting table. It is a smoke
// test and a demo of the vm package's public surface.
package main

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"weenix/defs"
	"weenix/mem"
	"weenix/stats"
	"weenix/vm"
)

func kerr(e defs.Err_t) error {
	return errors.New(e.String())
}

func run() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync()
	vm.SetLogger(logger)

	mem.Phys_init(4096)
	m := vm.Mkvmmap()
	if m == nil {
		return errors.New("out of kernel heap")
	}
	defer m.Destroy()

	rw := defs.PROT_READ | defs.PROT_WRITE
	if _, e := m.Map(nil, 16, 64, rw, defs.MAP_PRIVATE|defs.MAP_ANON,
		0, vm.DIR_LOHI); e != 0 {
		return errors.Wrap(kerr(e), "mapping private region")
	}
	if _, e := m.Map(nil, 0, 8, rw|defs.PROT_EXEC,
		defs.MAP_SHARED|defs.MAP_ANON, 0, vm.DIR_HILO); e != 0 {
		return errors.Wrap(kerr(e), "mapping shared region")
	}
	// punch a hole through the private region
	if e := m.Remove(32, 16); e != 0 {
		return errors.Wrap(kerr(e), "removing interior range")
	}

	msg := []uint8("demand paging pays for itself")
	va := 16 * mem.PGSIZE
	if e := m.Write(va, msg); e != 0 {
		return errors.Wrap(kerr(e), "writing user memory")
	}
	back := make([]uint8, len(msg))
	if e := m.Read(va, back); e != 0 {
		return errors.Wrap(kerr(e), "reading user memory")
	}
	if string(back) != string(msg) {
		return errors.New("user memory roundtrip mismatch")
	}

	child, e := m.Clone()
	if e != 0 {
		return errors.Wrap(kerr(e), "cloning address space")
	}
	defer child.Destroy()

	fmt.Print(m.String())

	var total uint
	for vma := m.Head(); vma != nil; vma = vma.Next() {
		total += vma.Npages() * uint(mem.PGSIZE)
	}
	fmt.Printf("%d areas, %s mapped\n", m.Nvmas(),
		datasize.ByteSize(uint64(total)).HumanReadable())
	if stats.Stats {
		fmt.Printf("vm stats:%s", stats.Stats2String(vm.Vmstats))
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vmmapinfo: %v\n", err)
		os.Exit(1)
	}
}
