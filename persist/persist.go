// Package persist implements the shape-list wire format spec.md §6
// describes for the editor example: not required by the streaming core
// itself, but the natural save/load companion to Composer's tagged-variant
// Shapes.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/errs"
	"github.com/gekko3d/voxelterrain/sdf"
)

// FormatVersion is written as the file's leading u32; bump it whenever the
// trailing-fields layout changes.
const FormatVersion uint32 = 1

// Record is the persisted form of one Shape: everything Save/Load needs to
// reconstruct it without depending on a live Composer.
type Record struct {
	Kind         sdf.Kind
	Name         string
	Transform    mgl32.Mat4 // row-major on the wire, object-to-world
	Op           sdf.Op
	MaterialID   sdf.MaterialID
	Smoothing    float32
	CornerRadius float32 // Box
	Bottom, Top  float32 // Cylinder
}

func kindName(k sdf.Kind) (string, error) {
	switch k {
	case sdf.KindBox:
		return "box", nil
	case sdf.KindCylinder:
		return "cylinder", nil
	case sdf.KindHeightmap:
		return "heightmap", nil
	default:
		return "", errs.Newf(errs.InvalidInput, "persist.kindName", "unknown shape kind %v", k)
	}
}

func nameKind(s string) (sdf.Kind, error) {
	switch s {
	case "box":
		return sdf.KindBox, nil
	case "cylinder":
		return sdf.KindCylinder, nil
	case "heightmap":
		return sdf.KindHeightmap, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "persist.nameKind", "unknown shape type %q", s)
	}
}

// Save writes records to w in the little-endian format from spec.md §6.
// Heightmap records are written with no trailing fields: the sampler itself
// is out of scope for persistence (image decoding is not part of the core).
// Write failures (a full disk, a closed socket) are ordinary I/O errors, not
// errs.Internal invariant violations, so they are returned as plain wrapped
// errors rather than through the errs taxonomy.
func Save(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, FormatVersion); err != nil {
		return fmt.Errorf("persist.Save: writing version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(records))); err != nil {
		return fmt.Errorf("persist.Save: writing count: %w", err)
	}
	for _, r := range records {
		if err := writeRecord(bw, r); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("persist.Save: flushing: %w", err)
	}
	return nil
}

func writeRecord(w *bufio.Writer, r Record) error {
	typeName, err := kindName(r.Kind)
	if err != nil {
		return err
	}
	if err := writeLPString(w, typeName); err != nil {
		return err
	}
	if err := writeLPString(w, r.Name); err != nil {
		return err
	}

	// row-major 4x4: mgl32.Mat4 is stored column-major, so transpose on write.
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if err := binary.Write(w, binary.LittleEndian, r.Transform.At(row, col)); err != nil {
				return fmt.Errorf("persist.writeRecord: writing transform: %w", err)
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint8(r.Op)); err != nil {
		return fmt.Errorf("persist.writeRecord: writing op: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(r.MaterialID)); err != nil {
		return fmt.Errorf("persist.writeRecord: writing material: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, r.Smoothing); err != nil {
		return fmt.Errorf("persist.writeRecord: writing smoothing: %w", err)
	}

	switch r.Kind {
	case sdf.KindBox:
		if err := binary.Write(w, binary.LittleEndian, r.CornerRadius); err != nil {
			return fmt.Errorf("persist.writeRecord: writing corner radius: %w", err)
		}
	case sdf.KindCylinder:
		if err := binary.Write(w, binary.LittleEndian, r.Bottom); err != nil {
			return fmt.Errorf("persist.writeRecord: writing bottom: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, r.Top); err != nil {
			return fmt.Errorf("persist.writeRecord: writing top: %w", err)
		}
	case sdf.KindHeightmap:
		// no trailing fields: the sampler is not persisted.
	}
	return nil
}

func writeLPString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("persist.writeLPString: writing length: %w", err)
	}
	if _, err := w.WriteString(s); err != nil {
		return fmt.Errorf("persist.writeLPString: writing bytes: %w", err)
	}
	return nil
}

// Load reads records written by Save.
func Load(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, errs.New(errs.InvalidInput, "persist.Load", err)
	}
	if version != FormatVersion {
		return nil, errs.Newf(errs.InvalidInput, "persist.Load", "unsupported format version %d", version)
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, errs.New(errs.InvalidInput, "persist.Load", err)
	}

	records := make([]Record, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := readRecord(br)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readRecord(r *bufio.Reader) (Record, error) {
	typeName, err := readLPString(r)
	if err != nil {
		return Record{}, err
	}
	kind, err := nameKind(typeName)
	if err != nil {
		return Record{}, err
	}
	name, err := readLPString(r)
	if err != nil {
		return Record{}, err
	}

	var m mgl32.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var v float32
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
			}
			m.Set(row, col, v)
		}
	}

	var op, material uint8
	if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
		return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &material); err != nil {
		return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
	}
	var smoothing float32
	if err := binary.Read(r, binary.LittleEndian, &smoothing); err != nil {
		return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
	}

	rec := Record{
		Kind:       kind,
		Name:       name,
		Transform:  m,
		Op:         sdf.Op(op),
		MaterialID: sdf.MaterialID(material),
		Smoothing:  smoothing,
	}

	switch kind {
	case sdf.KindBox:
		if err := binary.Read(r, binary.LittleEndian, &rec.CornerRadius); err != nil {
			return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
		}
	case sdf.KindCylinder:
		if err := binary.Read(r, binary.LittleEndian, &rec.Bottom); err != nil {
			return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.Top); err != nil {
			return Record{}, errs.New(errs.InvalidInput, "persist.readRecord", err)
		}
	}
	return rec, nil
}

func readLPString(r *bufio.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", errs.New(errs.InvalidInput, "persist.readLPString", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errs.New(errs.InvalidInput, "persist.readLPString", err)
	}
	return string(buf), nil
}
