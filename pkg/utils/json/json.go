// Package json provides the JSON codec used for API responses.
// It uses sonic on amd64/arm64 and falls back to encoding/json elsewhere.
package json

import (
	stdjson "encoding/json"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error
)

func init() {
	// Sonic only supports amd64 and arm64 architectures
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		Marshal = sonic.ConfigStd.Marshal
		Unmarshal = sonic.ConfigStd.Unmarshal
		return
	}
	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
}
