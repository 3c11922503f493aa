package elf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/edsrzf/mmap-go"
)

// MMapedElfFile is an InMemElfFile backed by a read-only mapping of the
// file. When the kernel refuses the mapping (pseudo filesystems, odd
// mounts) it falls back to buffered pread on the open descriptor.
type MMapedElfFile struct {
	InMemElfFile

	fpath    string
	mmaped   mmap.MMap
	openFile *os.File
}

func NewMMapedElfFile(fpath string) (*MMapedElfFile, error) {
	fd, err := os.OpenFile(fpath, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open elf file %s: %w", fpath, err)
	}
	res := &MMapedElfFile{
		fpath:    fpath,
		openFile: fd,
	}
	var reader io.ReaderAt
	mmaped, err := mmap.Map(fd, mmap.RDONLY, 0)
	if err == nil {
		res.mmaped = mmaped
		reader = bytes.NewReader(mmaped)
	} else {
		reader = bufra.NewBufReaderAt(fd, 4*0x1000)
	}
	in, err := NewInMemElfFile(reader)
	if err != nil {
		res.Close()
		return nil, err
	}
	res.InMemElfFile = *in
	return res, nil
}

func (f *MMapedElfFile) FilePath() string {
	return f.fpath
}

func (f *MMapedElfFile) Close() {
	if f.mmaped != nil {
		_ = f.mmaped.Unmap()
		f.mmaped = nil
	}
	if f.openFile != nil {
		_ = f.openFile.Close()
		f.openFile = nil
	}
}
