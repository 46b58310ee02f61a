package clusterio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
)

// mmapWriter appends fixed- and variable-length fields into a
// pre-sized, memory-mapped region.
type mmapWriter struct {
	data   mmap.MMap
	offset int
}

func (w *mmapWriter) writeUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *mmapWriter) writeBytes(b []byte) {
	copy(w.data[w.offset:], b)
	w.offset += len(b)
}

type mmapReader struct {
	data   mmap.MMap
	offset int
}

func (r *mmapReader) readUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *mmapReader) readBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, r.data[r.offset:r.offset+n])
	r.offset += n
	return b
}

// SaveMMap writes points to filename via a memory-mapped, pre-sized
// file: a uint32 count, then for each point a uint32 byte length
// followed by codec.Encode's output. Every point is encoded once, up
// front, and kept in memory so the file can be sized exactly before it is
// mapped, which avoids growing the mapping mid-write.
func SaveMMap[P any](filename string, points []P, codec PointCodec[P]) error {
	encoded := make([][]byte, len(points))
	size := int64(4)
	for i, p := range points {
		b, err := codec.Encode(p)
		if err != nil {
			return fmt.Errorf("failed to encode point %d: %v", i, err)
		}
		encoded[i] = b
		size += 4 + int64(len(b))
	}

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %v", err)
	}

	mapped, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mapped.Unmap()

	w := &mmapWriter{data: mapped}
	w.writeUint32(uint32(len(points)))
	for _, b := range encoded {
		w.writeUint32(uint32(len(b)))
		w.writeBytes(b)
	}
	return mapped.Flush()
}

// LoadMMap reads a point stream written by SaveMMap.
func LoadMMap[P any](filename string, codec PointCodec[P]) ([]P, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	mapped, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mapped.Unmap()

	r := &mmapReader{data: mapped}
	count := r.readUint32()
	points := make([]P, 0, count)
	for i := uint32(0); i < count; i++ {
		n := r.readUint32()
		p, err := codec.Decode(r.readBytes(int(n)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode point %d: %v", i, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// SaveCompressedMMap writes points via SaveMMap to a temporary file,
// then zstd-compresses that file into filename.
func SaveCompressedMMap[P any](filename string, points []P, codec PointCodec[P]) error {
	tempFile := filename + ".tmp"
	if err := SaveMMap(tempFile, points, codec); err != nil {
		return fmt.Errorf("failed to save mmap: %v", err)
	}
	defer os.Remove(tempFile)

	src, err := os.Open(tempFile)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %v", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}
	defer enc.Close()

	if _, err := io.Copy(enc, src); err != nil {
		return fmt.Errorf("failed to compress data: %v", err)
	}
	return nil
}

// LoadCompressedMMap reverses SaveCompressedMMap: decompress to a
// temporary file, then load that file via LoadMMap.
func LoadCompressedMMap[P any](filename string, codec PointCodec[P]) ([]P, error) {
	tempFile := filename + ".tmp"
	dst, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tempFile)
	defer dst.Close()

	src, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed file: %v", err)
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	if _, err := io.Copy(dst, dec); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %v", err)
	}
	if err := dst.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync temp file: %v", err)
	}

	return LoadMMap[P](tempFile, codec)
}
