package v3rpc

import (
	pb "github.com/iScript/udiscovery/discoveryserver/api/udiscoverypb"
)

// codec is the message codec of the API, counting the bytes it moves.
type codec struct{ pb.Codec }

func (c *codec) Marshal(v interface{}) ([]byte, error) {
	b, err := c.Codec.Marshal(v)
	sentBytes.Add(float64(len(b)))
	return b, err
}

func (c *codec) Unmarshal(data []byte, v interface{}) error {
	receivedBytes.Add(float64(len(data)))
	return c.Codec.Unmarshal(data, v)
}
