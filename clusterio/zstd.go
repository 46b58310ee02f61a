package clusterio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// SaveCompressed writes points to filename as a zstd-compressed,
// length-prefixed record stream: a uint32 point count, then for each
// point a uint32 byte length followed by codec.Encode's output.
func SaveCompressed[P any](filename string, points []P, codec PointCodec[P]) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}

	if err := binary.Write(enc, binary.LittleEndian, uint32(len(points))); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write point count: %v", err)
	}

	for i, p := range points {
		b, err := codec.Encode(p)
		if err != nil {
			enc.Close()
			return fmt.Errorf("failed to encode point %d: %v", i, err)
		}
		if err := binary.Write(enc, binary.LittleEndian, uint32(len(b))); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write point %d length: %v", i, err)
		}
		if _, err := enc.Write(b); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write point %d: %v", i, err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %v", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %v", err)
	}
	return nil
}

// LoadCompressed reads a point stream written by SaveCompressed.
func LoadCompressed[P any](filename string, codec PointCodec[P]) ([]P, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	var count uint32
	if err := binary.Read(dec, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read point count: %v", err)
	}

	points := make([]P, 0, count)
	for i := uint32(0); i < count; i++ {
		var n uint32
		if err := binary.Read(dec, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("failed to read point %d length: %v", i, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(dec, buf); err != nil {
			return nil, fmt.Errorf("failed to read point %d: %v", i, err)
		}
		p, err := codec.Decode(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to decode point %d: %v", i, err)
		}
		points = append(points, p)
	}
	return points, nil
}
