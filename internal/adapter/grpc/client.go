package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls PortfolioService methods with plain maps
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient creates a client on conn. token may be empty for public methods.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Call invokes method with req and returns the decoded response
func (c *Client) Call(ctx context.Context, method string, req map[string]interface{}) (map[string]interface{}, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
