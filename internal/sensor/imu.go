package sensor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/tiltball/internal/dynamo"
)

var (
	accelXColumns = []string{"accel_x", "acc_x", "ax"}
	accelYColumns = []string{"accel_y", "acc_y", "ay"}
	accelZColumns = []string{"accel_z", "acc_z", "az"}
	gyroXColumns  = []string{"gyro_x", "gx_rad"}
	gyroYColumns  = []string{"gyro_y", "gy_rad"}
	gyroZColumns  = []string{"gyro_z", "gz_rad"}
)

// Table is a whole sensor log held in memory, every column kept. Cells past
// the header width, as left by trailing commas, are dropped.
type Table struct {
	header []string
	rows   [][]string
}

func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("sensor csv: missing header")
		}
		return nil, fmt.Errorf("sensor csv: %w", err)
	}
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	t := &Table{header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sensor csv: %w", err)
		}
		if len(record) > len(header) {
			record = record[:len(header)]
		}
		t.rows = append(t.rows, record)
	}
}

func (t *Table) Len() int { return len(t.rows) }

// Has reports whether any of names is a column.
func (t *Table) Has(names ...string) bool {
	_, err := findColumn(t.header, names)
	return err == nil
}

// Column parses the first column matching names. Empty cells read as NaN.
func (t *Table) Column(names ...string) ([]float64, error) {
	col, err := findColumn(t.header, names)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			out[i] = math.NaN()
			continue
		}
		if out[i], err = strconv.ParseFloat(strings.TrimSpace(row[col]), 64); err != nil {
			return nil, &dynamo.SampleError{Index: i, Wrapped: err}
		}
	}
	return out, nil
}

// Timestamps parses the first column matching names as integer nanoseconds.
func (t *Table) Timestamps(names ...string) ([]int64, error) {
	col, err := findColumn(t.header, names)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(t.rows))
	for i, row := range t.rows {
		if col >= len(row) {
			return nil, &dynamo.SampleError{Index: i, Wrapped: errors.New("missing timestamp")}
		}
		if out[i], err = strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64); err != nil {
			return nil, &dynamo.SampleError{Index: i, Wrapped: err}
		}
	}
	return out, nil
}

// IMULog is a phone motion log: linear acceleration including gravity in
// m/s² and, when recorded, angular rate in rad/s. Times are seconds since
// the first row.
type IMULog struct {
	Times                  []float64
	AccelX, AccelY, AccelZ []float64
	// Gyro columns are nil when the log has none.
	GyroX, GyroY, GyroZ []float64
}

func (l *IMULog) Len() int { return len(l.Times) }

// HasGyro reports whether angular rate was recorded.
func (l *IMULog) HasGyro() bool { return l.GyroZ != nil }

// ReadIMU reads a log whose timestamps are nanoseconds, as Android stamps
// sensor events.
func ReadIMU(r io.Reader) (*IMULog, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, errors.New("sensor csv: no rows")
	}

	stamps, err := t.Timestamps(timeColumns...)
	if err != nil {
		return nil, err
	}
	log := &IMULog{Times: make([]float64, len(stamps))}
	for i, ts := range stamps {
		log.Times[i] = float64(ts-stamps[0]) / dynamo.NanosPerSecond
	}

	for _, c := range []struct {
		dst   *[]float64
		names []string
	}{
		{&log.AccelX, accelXColumns},
		{&log.AccelY, accelYColumns},
		{&log.AccelZ, accelZColumns},
	} {
		if *c.dst, err = t.Column(c.names...); err != nil {
			return nil, err
		}
	}

	if t.Has(gyroZColumns...) {
		for _, c := range []struct {
			dst   *[]float64
			names []string
		}{
			{&log.GyroX, gyroXColumns},
			{&log.GyroY, gyroYColumns},
			{&log.GyroZ, gyroZColumns},
		} {
			if !t.Has(c.names...) {
				continue
			}
			if *c.dst, err = t.Column(c.names...); err != nil {
				return nil, err
			}
		}
	}
	return log, nil
}
