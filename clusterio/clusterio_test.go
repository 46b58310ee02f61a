package clusterio

import (
	"path/filepath"
	"testing"
)

type storePoint struct {
	Lng, Lat float64
	Name     string
}

func TestSaveLoadCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.zst")

	points := []storePoint{
		{Lng: 1, Lat: 2, Name: "a"},
		{Lng: 3, Lat: 4, Name: "b"},
	}
	codec := JSONCodec[storePoint]()

	if err := SaveCompressed(path, points, codec); err != nil {
		t.Fatalf("SaveCompressed returned error: %v", err)
	}

	got, err := LoadCompressed(path, codec)
	if err != nil {
		t.Fatalf("LoadCompressed returned error: %v", err)
	}
	if len(got) != len(points) {
		t.Fatalf("got %d points, want %d", len(got), len(points))
	}
	for i := range points {
		if got[i] != points[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], points[i])
		}
	}
}

func TestSaveLoadCompressedEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.zst")
	codec := JSONCodec[storePoint]()

	if err := SaveCompressed(path, nil, codec); err != nil {
		t.Fatalf("SaveCompressed returned error: %v", err)
	}
	got, err := LoadCompressed(path, codec)
	if err != nil {
		t.Fatalf("LoadCompressed returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d points, want 0", len(got))
	}
}

func TestSaveLoadMMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.mmap")

	points := []storePoint{
		{Lng: 10, Lat: 20, Name: "x"},
		{Lng: 30, Lat: 40, Name: "y"},
		{Lng: 50, Lat: 60, Name: "z"},
	}
	codec := JSONCodec[storePoint]()

	if err := SaveMMap(path, points, codec); err != nil {
		t.Fatalf("SaveMMap returned error: %v", err)
	}
	got, err := LoadMMap(path, codec)
	if err != nil {
		t.Fatalf("LoadMMap returned error: %v", err)
	}
	if len(got) != len(points) {
		t.Fatalf("got %d points, want %d", len(got), len(points))
	}
	for i := range points {
		if got[i] != points[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], points[i])
		}
	}
}

func TestSaveLoadCompressedMMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.mmap.zst")

	points := []storePoint{
		{Lng: -1, Lat: -2, Name: "neg"},
	}
	codec := JSONCodec[storePoint]()

	if err := SaveCompressedMMap(path, points, codec); err != nil {
		t.Fatalf("SaveCompressedMMap returned error: %v", err)
	}
	got, err := LoadCompressedMMap(path, codec)
	if err != nil {
		t.Fatalf("LoadCompressedMMap returned error: %v", err)
	}
	if len(got) != 1 || got[0] != points[0] {
		t.Errorf("got %+v, want %+v", got, points)
	}
}
