package stl

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"labelmesh/pkg/mesh"
)

func testTriangles() []Triangle {
	return []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{1, 0, 0},
			Vertex2: [3]float32{1, 1, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
	}
}

// TestSaveToSTL verifies that the STL file can be written
func TestSaveToSTL(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.stl")

	triangles := testTriangles()
	if err := SaveToSTL(filename, triangles); err != nil {
		t.Fatalf("Failed to save STL: %v", err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("Failed to stat output file: %v", err)
	}

	// STL header: 80 bytes
	// Number of triangles: 4 bytes
	// Triangle: 50 bytes (12 bytes per vertex, 12 bytes per normal, 2 bytes attribute)
	expectedSize := int64(80 + 4 + 50*len(triangles))
	if info.Size() != expectedSize {
		t.Errorf("expected %d bytes, got %d", expectedSize, info.Size())
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, testTriangles()); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	decoded, err := ReadSTL(&buf)
	if err != nil {
		t.Fatalf("ReadSTL failed: %v", err)
	}
	if len(decoded) != 2 || decoded[1] != testTriangles()[1] {
		t.Errorf("unexpected triangles %v", decoded)
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteASCII(&buf, "square", testTriangles()); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("solid square")) {
		t.Errorf("unexpected header %q", buf.String()[:20])
	}
	decoded, err := ReadSTL(&buf)
	if err != nil {
		t.Fatalf("ReadSTL failed: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != testTriangles()[0] {
		t.Errorf("unexpected triangles %v", decoded)
	}
}

// TestBinaryHeaderStartingWithSolid checks that binary files whose header
// happens to start with "solid" are still decoded as binary.
func TestBinaryHeaderStartingWithSolid(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, testTriangles()); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	data := buf.Bytes()
	copy(data, "solid trap")
	decoded, err := ReadSTL(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSTL failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("expected 2 triangles, got %d", len(decoded))
	}
}

func TestReadGarbage(t *testing.T) {
	if _, err := ReadSTL(bytes.NewReader([]byte("hello"))); err == nil {
		t.Error("expected an error")
	}
}

func TestMalformedASCII(t *testing.T) {
	input := "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\nendsolid x\n"
	if _, err := ReadSTL(bytes.NewReader([]byte(input))); err == nil {
		t.Error("expected an error for a facet with 2 vertices")
	}
}

func TestMeshConversion(t *testing.T) {
	sphere := mesh.RegularSphere(1)
	triangles := FromMesh(sphere)
	if len(triangles) != sphere.NumberOfCells() {
		t.Fatalf("expected %d triangles, got %d", sphere.NumberOfCells(), len(triangles))
	}

	welded := ToMesh(triangles)
	if welded.NumberOfPoints() != sphere.NumberOfPoints() {
		t.Errorf("expected %d welded points, got %d", sphere.NumberOfPoints(), welded.NumberOfPoints())
	}
	if welded.NumberOfCells() != sphere.NumberOfCells() {
		t.Errorf("expected %d cells, got %d", sphere.NumberOfCells(), welded.NumberOfCells())
	}
	if err := welded.Validate(); err != nil {
		t.Errorf("welded mesh invalid: %v", err)
	}

	// outward normals on a unit sphere point along the centroid
	for i, tri := range triangles {
		c := sphere.Centroid(i)
		dot := float64(tri.Normal[0])*c.X + float64(tri.Normal[1])*c.Y + float64(tri.Normal[2])*c.Z
		if dot <= 0 {
			t.Errorf("triangle %d normal points inward", i)
		}
	}
}

func BenchmarkWriteBinary(b *testing.B) {
	triangles := FromMesh(mesh.RegularSphere(5))
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := WriteBinary(&buf, triangles); err != nil {
			b.Fatal(err)
		}
	}
}
