package participant

import (
	"encoding/json"

	"github.com/tos-network/tinychain/network"
)

func encodeMissingBlockRequest(req network.MissingBlockRequest) []byte {
	data, err := json.Marshal(req)
	if err != nil {
		// MissingBlockRequest has no custom marshaller and only
		// contains an Address and a fixed-size array; it cannot fail.
		panic(err)
	}
	return data
}

func decodeMissingBlockRequest(data []byte) (network.MissingBlockRequest, error) {
	var req network.MissingBlockRequest
	err := json.Unmarshal(data, &req)
	return req, err
}
