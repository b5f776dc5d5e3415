package queue

import "github.com/xraph/requeue/job"

// Codec defines the serialization contract for job messages on the wire.
type Codec interface {
	// Encode serializes a message to bytes.
	Encode(msg *job.Message) ([]byte, error)

	// Decode deserializes bytes into a message.
	Decode(data []byte) (*job.Message, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string

	// ContentType returns the MIME type advertised on published messages.
	ContentType() string
}

// CodecName constants for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	case CodecNameJSON, "":
		return &JSONCodec{}
	default:
		return &JSONCodec{}
	}
}
