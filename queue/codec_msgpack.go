package queue

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/requeue/job"
)

// MsgpackCodec encodes/decodes job messages as MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(msg *job.Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (c *MsgpackCodec) Decode(data []byte) (*job.Message, error) {
	var m job.Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }

func (c *MsgpackCodec) ContentType() string { return "application/msgpack" }
