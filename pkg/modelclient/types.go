// Package modelclient implements the Model Callable boundary (spec.md
// §4.C/§5): a single vision call taking an image, a fully-built prompt,
// and a model handle (base or LoRA-augmented), returning a parsed JSON
// score/comment payload. The remote implementation runs over gRPC so the
// model service can live in its own child process, managed by
// pkg/supervisor exactly like the teacher manages its LLM sidecar.
package modelclient

import "context"

// CallRequest is one invocation of the Model Callable.
type CallRequest struct {
	ImageRef    string
	Prompt      string
	ModelHandle string
}

// CallResponse is the model's parsed JSON response. Strategies are
// responsible for validating JSON shape against the eight-dimension
// score/comment schema.
type CallResponse struct {
	JSON map[string]any
}

// ModelCallable is the function-shaped boundary strategies call through.
// think is the thinking-stream sink (spec.md §4.D "Thinking stream",
// §9 "second channel multiplexed onto the bus"): an implementation
// invokes it zero or more times with incremental thinking text before
// returning the final parsed response. *Client.Call invokes it once with
// whatever thinking text came back on the wire; tests can supply a
// literal func value that calls it as many times as a scenario needs.
type ModelCallable func(ctx context.Context, req CallRequest, think func(string)) (*CallResponse, error)
