package sensor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/tiltball/internal/dynamo"
)

var (
	timeColumns = []string{"timestamp_ns", "timestamp", "t"}
	xColumns    = []string{"gravity_x", "accel_x", "gx"}
	yColumns    = []string{"gravity_y", "accel_y", "gy"}
)

// CSVReader reads readings from a sensor log. The first row is a header;
// columns are matched by name and any others (accel_z, gyro_*, ...) are
// ignored. An optional "reset" column marks scripted resets.
type CSVReader struct {
	r        *csv.Reader
	tCol     int
	xCol     int
	yCol     int
	resetCol int
	row      int
}

func NewCSVReader(r io.Reader) (*CSVReader, error) {
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

	c := &CSVReader{r: cr, resetCol: -1}
	if c.tCol, err = findColumn(header, timeColumns); err != nil {
		return nil, err
	}
	if c.xCol, err = findColumn(header, xColumns); err != nil {
		return nil, err
	}
	if c.yCol, err = findColumn(header, yColumns); err != nil {
		return nil, err
	}
	if i, err := findColumn(header, []string{"reset"}); err == nil {
		c.resetCol = i
	}
	return c, nil
}

func findColumn(header []string, names []string) (int, error) {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("sensor csv: no column named %s", strings.Join(names, " or "))
}

func (c *CSVReader) NextReading(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	record, err := c.r.Read()
	if err != nil {
		return Reading{}, err
	}
	c.row++

	rowErr := func(err error) error {
		return &dynamo.SampleError{Index: c.row - 1, Wrapped: err}
	}

	need := max(c.tCol, c.xCol, c.yCol)
	if len(record) <= need {
		return Reading{}, rowErr(fmt.Errorf("expected at least %d fields, got %d", need+1, len(record)))
	}

	var rd Reading
	if rd.Time, err = strconv.ParseInt(record[c.tCol], 10, 64); err != nil {
		return Reading{}, rowErr(err)
	}
	if rd.GX, err = strconv.ParseFloat(record[c.xCol], 64); err != nil {
		return Reading{}, rowErr(err)
	}
	if rd.GY, err = strconv.ParseFloat(record[c.yCol], 64); err != nil {
		return Reading{}, rowErr(err)
	}
	if c.resetCol >= 0 && c.resetCol < len(record) {
		rd.Reset, _ = strconv.ParseBool(record[c.resetCol])
	}
	return rd, nil
}

// CSVWriter records readings in the layout CSVReader expects.
type CSVWriter struct {
	w *csv.Writer
}

func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp_ns", "gravity_x", "gravity_y", "reset"}); err != nil {
		return nil, err
	}
	return &CSVWriter{w: cw}, nil
}

func (c *CSVWriter) Write(r Reading) error {
	return c.w.Write([]string{
		strconv.FormatInt(r.Time, 10),
		strconv.FormatFloat(r.GX, 'f', 6, 64),
		strconv.FormatFloat(r.GY, 'f', 6, 64),
		strconv.FormatBool(r.Reset),
	})
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// Copy drains src into w and returns the number of readings written.
func Copy(ctx context.Context, w *CSVWriter, src ReadingSource) (int, error) {
	n := 0
	for {
		r, err := src.NextReading(ctx)
		if errors.Is(err, io.EOF) {
			return n, w.Flush()
		}
		if err != nil {
			return n, err
		}
		if err := w.Write(r); err != nil {
			return n, err
		}
		n++
	}
}
