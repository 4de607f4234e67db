package shard

import (
	"encoding/json"
	"fmt"
)

// marshalForwardDecls encodes records as JSON (see ForwardDeclRecord's doc
// comment for why this auxiliary structure isn't protobuf).
func marshalForwardDecls(records []ForwardDeclRecord) ([]byte, error) {
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("shard: marshal forward decls: %w", err)
	}

	return b, nil
}

func unmarshalForwardDecls(b []byte) ([]ForwardDeclRecord, error) {
	if len(b) == 0 {
		return nil, nil
	}

	var records []ForwardDeclRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("unmarshal forward decls: %w", err)
	}

	return records, nil
}
