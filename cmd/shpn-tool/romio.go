package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// mappedRom is a ROM image loaded via mmap, or a plain in-memory buffer
// when the mmap call fails — the CLI driver isn't part
// of the core's tested surface, so the fallback is a pragmatic concession.
// The mapping is always private: in-memory patches never propagate back to
// the source file on their own, mirroring the original tool's mmap(..,
// MAP_FILE | MAP_PRIVATE, ..) so <rom>/<in> stay untouched and the patched
// image only ever lands at the caller-supplied <out> path.
type mappedRom struct {
	data    []byte
	file    *os.File
	mmapped bool
}

func openRom(path string) (*mappedRom, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		buf, rerr := os.ReadFile(path)
		f.Close()
		if rerr != nil {
			return nil, rerr
		}
		return &mappedRom{data: buf}, nil
	}

	return &mappedRom{data: data, file: f, mmapped: true}, nil
}

func (m *mappedRom) bytes() []byte { return m.data }

// close releases the mapping (private, so its patches were never visible to
// the backing file) and writes the patched buffer out to path explicitly,
// whether or not the mmap path was used.
func (m *mappedRom) close(path string) error {
	if m.mmapped {
		werr := os.WriteFile(path, m.data, 0644)
		uerr := unix.Munmap(m.data)
		cerr := m.file.Close()
		if werr != nil {
			return werr
		}
		if uerr != nil {
			return uerr
		}
		return cerr
	}
	return os.WriteFile(path, m.data, 0644)
}
