package csvio

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
)

var errRequired = errors.New("required value is empty")

// timestamp layouts accepted on read; writes always use common.TimeLayout
var timeLayouts = []string{common.TimeLayout, "2006-01-02T15:04:05.999", "2006-01-02"}

func encStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func encInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func encFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

func encTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return common.FormatTime(*t)
}

// FormatFloat writes the shortest representation that parses back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decoder walks one row's fields in column order and keeps the first error.
type decoder struct {
	columns []string
	fields  []string
	pos     int
	err     *DecodeError
}

func (d *decoder) next() (string, string) {
	col := d.columns[d.pos]
	val := ""
	if d.pos < len(d.fields) {
		val = strings.TrimSpace(d.fields[d.pos])
	}
	d.pos++
	return col, val
}

func (d *decoder) fail(col, val string, err error) {
	if d.err == nil {
		d.err = &DecodeError{Column: col, Value: val, Err: err}
	}
}

func (d *decoder) str() string {
	col, val := d.next()
	if val == "" {
		d.fail(col, val, errRequired)
	}
	return val
}

func (d *decoder) optStr() *string {
	_, val := d.next()
	if val == "" {
		return nil
	}
	return &val
}

// rawStr keeps surrounding whitespace; used for free text columns.
func (d *decoder) rawStr() *string {
	val := ""
	if d.pos < len(d.fields) {
		val = d.fields[d.pos]
	}
	d.pos++
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return &val
}

func (d *decoder) int() int {
	v := d.optIntAt(true)
	if v == nil {
		return 0
	}
	return *v
}

func (d *decoder) optInt() *int {
	return d.optIntAt(false)
}

func (d *decoder) optIntAt(required bool) *int {
	col, val := d.next()
	if val == "" {
		if required {
			d.fail(col, val, errRequired)
		}
		return nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		// integer columns written by other tools may carry a ".0"
		f, ferr := strconv.ParseFloat(val, 64)
		if ferr != nil || f != float64(int(f)) {
			d.fail(col, val, err)
			return nil
		}
		v = int(f)
	}
	return &v
}

func (d *decoder) int64() int64 {
	v := d.optInt64At(true)
	if v == nil {
		return 0
	}
	return *v
}

func (d *decoder) optInt64() *int64 {
	return d.optInt64At(false)
}

func (d *decoder) optInt64At(required bool) *int64 {
	col, val := d.next()
	if val == "" {
		if required {
			d.fail(col, val, errRequired)
		}
		return nil
	}
	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(val, 64)
		if ferr != nil || f != float64(int64(f)) {
			d.fail(col, val, err)
			return nil
		}
		v = int64(f)
	}
	return &v
}

func (d *decoder) optFloat() *float64 {
	col, val := d.next()
	if val == "" {
		return nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		d.fail(col, val, err)
		return nil
	}
	return &v
}

func (d *decoder) optTime() *time.Time {
	col, val := d.next()
	if val == "" {
		return nil
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, val, time.UTC); err == nil {
			return &t
		}
	}
	d.fail(col, val, err)
	return nil
}
