package miniseed

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecord describes one synthetic miniSEED record for encoding.
type testRecord struct {
	station, location, channel, network string

	start    time.Time
	factor   int16
	mult     int16
	encoding byte
	samples  []float64
}

// encodeTestRecord builds a 256-byte big-endian record with a blockette 1000
// at offset 48 and data at offset 64.
func encodeTestRecord(rec testRecord) []byte {
	buf := make([]byte, 256)

	copy(buf[0:6], "000001")
	buf[6] = 'D'

	copy(buf[8:13], pad(rec.station, 5))
	copy(buf[13:15], pad(rec.location, 2))
	copy(buf[15:18], pad(rec.channel, 3))
	copy(buf[18:20], pad(rec.network, 2))

	binary.BigEndian.PutUint16(buf[20:22], uint16(rec.start.Year()))
	binary.BigEndian.PutUint16(buf[22:24], uint16(rec.start.YearDay()))
	buf[24] = byte(rec.start.Hour())
	buf[25] = byte(rec.start.Minute())
	buf[26] = byte(rec.start.Second())
	binary.BigEndian.PutUint16(buf[28:30], uint16(rec.start.Nanosecond()/100000))

	binary.BigEndian.PutUint16(buf[30:32], uint16(len(rec.samples)))
	binary.BigEndian.PutUint16(buf[32:34], uint16(rec.factor))
	binary.BigEndian.PutUint16(buf[34:36], uint16(rec.mult))

	buf[39] = 1 // one blockette
	binary.BigEndian.PutUint16(buf[44:46], 64)
	binary.BigEndian.PutUint16(buf[46:48], 48)

	// Blockette 1000.
	binary.BigEndian.PutUint16(buf[48:50], 1000)
	buf[52] = rec.encoding
	buf[53] = 1 // big endian payload
	buf[54] = 8 // 2^8 = 256 byte record

	at := 64
	for _, v := range rec.samples {
		switch rec.encoding {
		case encodingInt16:
			binary.BigEndian.PutUint16(buf[at:], uint16(int16(v)))
			at += 2
		case encodingInt32:
			binary.BigEndian.PutUint32(buf[at:], uint32(int32(v)))
			at += 4
		case encodingFloat32:
			binary.BigEndian.PutUint32(buf[at:], math.Float32bits(float32(v)))
			at += 4
		case encodingFloat64:
			binary.BigEndian.PutUint64(buf[at:], math.Float64bits(v))
			at += 8
		}
	}

	return buf
}

func pad(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}

	copy(out, s)

	return out
}

func writeTestFile(t *testing.T, records ...testRecord) string {
	t.Helper()

	var raw []byte
	for _, rec := range records {
		raw = append(raw, encodeTestRecord(rec)...)
	}

	path := filepath.Join(t.TempDir(), "test.mseed")

	require.NoError(t, os.WriteFile(path, raw, 0o644))

	return path
}

var recordStart = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func baseRecord(start time.Time, samples []float64) testRecord {
	return testRecord{
		station: "DAX", location: "00", channel: "BHZ", network: "BJ",
		start: start, factor: 10, mult: 1,
		encoding: encodingInt32, samples: samples,
	}
}

func TestReadFile_SingleRecord(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, baseRecord(recordStart, []float64{1, 2, 3, 4}))

	traces, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, traces, 1)

	tr := traces[0]

	assert.Equal(t, "BJ.DAX.00.BHZ", tr.ID.String())
	assert.Equal(t, recordStart, tr.StartTime)
	assert.InDelta(t, 10.0, tr.SampleRate, 1e-9)
	assert.Equal(t, []float64{1, 2, 3, 4}, tr.Samples)
}

func TestReadFile_ContiguousRecordsCoalesce(t *testing.T) {
	t.Parallel()

	first := baseRecord(recordStart, []float64{1, 2, 3, 4})
	// 4 samples at 10 Hz: next record starts 0.4 s later.
	second := baseRecord(recordStart.Add(400*time.Millisecond), []float64{5, 6})

	path := writeTestFile(t, first, second)

	traces, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, traces[0].Samples)
}

func TestReadFile_GapSplitsSegments(t *testing.T) {
	t.Parallel()

	first := baseRecord(recordStart, []float64{1, 2, 3, 4})
	second := baseRecord(recordStart.Add(10*time.Second), []float64{5, 6})

	path := writeTestFile(t, first, second)

	traces, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, traces[0].Samples)
	assert.Equal(t, []float64{5, 6}, traces[1].Samples)
}

func TestReadFile_ChannelChangeSplitsSegments(t *testing.T) {
	t.Parallel()

	first := baseRecord(recordStart, []float64{1, 2})
	second := baseRecord(recordStart.Add(200*time.Millisecond), []float64{3, 4})
	second.channel = "BHN"

	path := writeTestFile(t, first, second)

	traces, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, "BHZ", traces[0].ID.Channel)
	assert.Equal(t, "BHN", traces[1].ID.Channel)
}

func TestReadFile_FloatEncodings(t *testing.T) {
	t.Parallel()

	rec := baseRecord(recordStart, []float64{1.5, -2.25})
	rec.encoding = encodingFloat64

	path := writeTestFile(t, rec)

	traces, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, []float64{1.5, -2.25}, traces[0].Samples)
}

func TestReadFile_SteimUnsupported(t *testing.T) {
	t.Parallel()

	rec := baseRecord(recordStart, nil)
	rec.encoding = encodingSteim2

	path := writeTestFile(t, rec)

	_, err := ReadFile(path)

	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestReadFile_Truncated(t *testing.T) {
	t.Parallel()

	raw := encodeTestRecord(baseRecord(recordStart, []float64{1}))
	path := filepath.Join(t.TempDir(), "short.mseed")

	require.NoError(t, os.WriteFile(path, raw[:40], 0o644))

	_, err := ReadFile(path)

	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestReadFile_BlocketteTruncatedAtLengthByte(t *testing.T) {
	t.Parallel()

	// Cut the record inside blockette 1000, right before its record-length
	// byte, so only the first six blockette bytes survive.
	raw := encodeTestRecord(baseRecord(recordStart, []float64{1}))
	path := filepath.Join(t.TempDir(), "cut.mseed")

	require.NoError(t, os.WriteFile(path, raw[:54], 0o644))

	_, err := ReadFile(path)

	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestSampleRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		factor int16
		mult   int16
		want   float64
	}{
		{"positive factor and multiplier", 100, 1, 100},
		{"negative multiplier divides", 100, -2, 50},
		{"negative factor is period", -10, 1, 0.1},
		{"negative factor and multiplier", -5, -2, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rate, err := sampleRate(tt.factor, tt.mult)

			require.NoError(t, err)
			assert.InDelta(t, tt.want, rate, 1e-9)
		})
	}
}

func TestSampleRate_Zero(t *testing.T) {
	t.Parallel()

	_, err := sampleRate(0, 1)

	assert.ErrorIs(t, err, ErrBadSampleRate)
}

func TestCoalesce_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, coalesce(nil))
}

func TestReadFile_TraceInvariants(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, baseRecord(recordStart, []float64{1, 2, 3}))

	traces, err := ReadFile(path)

	require.NoError(t, err)

	for _, tr := range traces {
		require.NoError(t, tr.Validate())
		assert.False(t, tr.EndTime().Before(tr.StartTime))
	}
}
