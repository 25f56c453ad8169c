package lock

import (
	"encoding/json"
	"fmt"

	"github.com/limistah/heimdal/pkg/errors"
)

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode lock record")
	}
	return append(data, '\n'), nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("lock record has no id")
	}
	return &rec, nil
}
