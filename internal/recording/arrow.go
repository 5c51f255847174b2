package recording

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/pulse/internal/spike"
)

// rasterSchema is the columnar layout for an exported spike raster: one
// row per emitted spike.
var rasterSchema = arrow.NewSchema([]arrow.Field{
	{Name: "source", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "timestamp_ns", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "amplitude", Type: arrow.PrimitiveTypes.Float32},
}, nil)

// ExportRaster writes a spike raster as an Arrow IPC file, one record
// batch for the whole raster. An empty raster produces a valid file with
// the schema and no rows.
func ExportRaster(path string, spikes []spike.Spike) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export raster: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rasterSchema))
	if err != nil {
		return fmt.Errorf("export raster: open writer: %w", err)
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, rasterSchema)
	defer b.Release()

	sources := make([]uint32, len(spikes))
	timestamps := make([]uint64, len(spikes))
	amplitudes := make([]float32, len(spikes))
	for i, s := range spikes {
		sources[i] = uint32(s.Source)
		timestamps[i] = s.Timestamp.Nanos()
		amplitudes[i] = s.Amplitude
	}
	b.Field(0).(*array.Uint32Builder).AppendValues(sources, nil)
	b.Field(1).(*array.Uint64Builder).AppendValues(timestamps, nil)
	b.Field(2).(*array.Float32Builder).AppendValues(amplitudes, nil)

	rec := b.NewRecord()
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("export raster: write batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export raster: close writer: %w", err)
	}
	return f.Close()
}

// ImportRaster reads a spike raster back from an Arrow IPC file written
// by ExportRaster.
func ImportRaster(path string) ([]spike.Spike, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("import raster: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("import raster: open reader: %w", err)
	}
	defer r.Close()

	var spikes []spike.Spike
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("import raster: batch %d: %w", i, err)
		}

		sources, ok := rec.Column(0).(*array.Uint32)
		if !ok {
			return nil, fmt.Errorf("import raster: batch %d: source column is %T", i, rec.Column(0))
		}
		timestamps, ok := rec.Column(1).(*array.Uint64)
		if !ok {
			return nil, fmt.Errorf("import raster: batch %d: timestamp column is %T", i, rec.Column(1))
		}
		amplitudes, ok := rec.Column(2).(*array.Float32)
		if !ok {
			return nil, fmt.Errorf("import raster: batch %d: amplitude column is %T", i, rec.Column(2))
		}

		for row := 0; row < int(rec.NumRows()); row++ {
			spikes = append(spikes, spike.Spike{
				Source:    spike.NeuronID(sources.Value(row)),
				Timestamp: spike.TimeFromNanos(timestamps.Value(row)),
				Amplitude: amplitudes.Value(row),
			})
		}
	}
	return spikes, nil
}
