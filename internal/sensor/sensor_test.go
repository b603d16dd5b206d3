package sensor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/san-kum/tiltball/internal/dynamo"
)

func TestGravityAdapter(t *testing.T) {
	tests := []struct {
		name    string
		adapter GravityAdapter
		gx, gy  float64
		ax, ay  float64
	}{
		{"phone upright", GravityAdapter{Scale: 100, InvertX: true}, -2, 9.5, 200, 950},
		{"identity", GravityAdapter{Scale: 1}, 1.5, -2, 1.5, -2},
		{"both inverted", GravityAdapter{Scale: 10, InvertX: true, InvertY: true}, 1, 1, -10, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.adapter.Sample(Reading{Time: 42, GX: tt.gx, GY: tt.gy, Reset: true})
			if s.AccX != tt.ax || s.AccY != tt.ay {
				t.Errorf("expected (%g, %g), got (%g, %g)", tt.ax, tt.ay, s.AccX, s.AccY)
			}
			if s.Time != 42 || !s.Reset {
				t.Errorf("time and reset must pass through, got %+v", s)
			}
		})
	}
}

const imuLog = `timestamp_ns,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z
1000000000,0.5,9.7,0.1,0,0,0
1020000000,-0.25,9.6,0.2,0,0,0
# dropped frame
1040000000,-1.0,9.5,0.3,0,0,0
`

func TestCSVReaderIMULayout(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader(imuLog))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	src := Adapt(r, GravityAdapter{Scale: 100, InvertX: true})
	var got []dynamo.Sample
	for {
		s, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, s)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[1].Time != 1_020_000_000 || got[1].AccX != 25 || got[1].AccY != 960 {
		t.Errorf("unexpected second sample %+v", got[1])
	}
}

func TestCSVReaderHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no time", "accel_x,accel_y\n1,2\n"},
		{"no y", "timestamp_ns,accel_x\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCSVReader(strings.NewReader(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCSVReaderBadRow(t *testing.T) {
	data := "t,gx,gy\n0,1,1\n10,abc,1\n"
	r, err := NewCSVReader(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.NextReading(context.Background()); err != nil {
		t.Fatalf("first row: %v", err)
	}
	_, err = r.NextReading(context.Background())

	var se *dynamo.SampleError
	if !errors.As(err, &se) {
		t.Fatalf("expected SampleError, got %v", err)
	}
	if se.Index != 1 {
		t.Errorf("expected row index 1, got %d", se.Index)
	}
}

func TestCSVReaderShortRow(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("t,gx,gy\n0,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NextReading(context.Background()); err == nil {
		t.Error("expected error for short row")
	}
}

func TestRecordReplay(t *testing.T) {
	tilt := func(t, dt float64) (float64, float64, bool) {
		return t, -t, t > 0.05 && t-dt <= 0.05
	}
	src := NewSynthetic(tilt, 20, 0.2, 5_000)

	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	n, err := Copy(context.Background(), w, src)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 readings, got %d", n)
	}

	r, err := NewCSVReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var readings []Reading
	for {
		rd, err := r.NextReading(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		readings = append(readings, rd)
	}

	if len(readings) != 5 {
		t.Fatalf("expected 5 readings back, got %d", len(readings))
	}
	if readings[2].Time != 5_000+100_000_000 || readings[2].GX != 0.1 || readings[2].GY != -0.1 {
		t.Errorf("unexpected reading %+v", readings[2])
	}
	for i, rd := range readings {
		if rd.Reset != (i == 2) {
			t.Errorf("reading %d: reset=%v", i, rd.Reset)
		}
	}
}

func TestSyntheticCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSynthetic(Constant(0, 9.81), 50, 1, 0).NextReading(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
