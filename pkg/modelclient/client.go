package modelclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the model service child process,
// mirroring pkg/llm/client.go's connect-once-plaintext-sidecar shape.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient dials addr. Uses insecure transport — the model service is
// expected to run as a sidecar managed by the Supervisor on localhost.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to model service at %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call implements ModelCallable by invoking the remote model service. The
// current wire form is a unary RPC, so think fires at most once with
// whatever thinking text the response carried; a server-streaming RPC
// emitting incremental thinking chunks before the final struct is future
// work the single grpc.ServiceDesc method here doesn't yet cover.
func (c *Client) Call(ctx context.Context, req CallRequest, think func(string)) (*CallResponse, error) {
	in, err := structpb.NewStruct(map[string]any{
		"image_ref":    req.ImageRef,
		"prompt":       req.Prompt,
		"model_handle": req.ModelHandle,
	})
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/Call", in, out); err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	return responseFromStruct(out, think), nil
}

func responseFromStruct(s *structpb.Struct, think func(string)) *CallResponse {
	fields := s.AsMap()
	if thinking, ok := fields["thinking"].(string); ok {
		delete(fields, "thinking")
		if think != nil && thinking != "" {
			think(thinking)
		}
	}
	return &CallResponse{JSON: fields}
}
