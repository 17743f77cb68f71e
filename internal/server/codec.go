package server

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docflow/internal/common"
)

// decode maps a Struct request onto a typed request value.
func decode(in *structpb.Struct, out any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return common.NewValidationError("request is not encodable", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.NewValidationError("malformed request", err)
	}
	return nil
}

// encode turns a JSON-tagged value into a Struct response.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
