package formats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

func decodeJSON(r io.Reader, dtypes []core.Field) (*core.Frame, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]interface{}
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse json records: %w", err)
	}

	for _, rec := range records {
		for k, v := range rec {
			if n, ok := v.(json.Number); ok {
				rec[k] = numberValue(n)
			}
		}
	}

	frame := core.FrameFromRecords(records)
	if err := ConvertFrame(frame, dtypes); err != nil {
		return nil, err
	}
	return frame, nil
}

func encodeJSON(w io.Writer, frame *core.Frame) error {
	records := frame.Records()
	if records == nil {
		records = []map[string]interface{}{}
	}
	return json.NewEncoder(w).Encode(records)
}

func numberValue(n json.Number) interface{} {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
