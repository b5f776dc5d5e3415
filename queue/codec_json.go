package queue

import (
	"encoding/json"

	"github.com/xraph/requeue/job"
)

// JSONCodec encodes/decodes job messages as JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(msg *job.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *JSONCodec) Decode(data []byte) (*job.Message, error) {
	var m job.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

func (c *JSONCodec) ContentType() string { return "application/json" }
