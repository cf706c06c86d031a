// Package stream defines the gRPC-shaped account-subscription client the
// claim-status cache (internal/cache) uses to stay live without repolling
// every distributor and claim-status account. The message and service
// types here are hand-rolled: they describe the shape of a streaming RPC without
// depending on protoc-gen-go-grpc output generated from a .proto file.
package stream

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tokendrop/distributor/internal/chain"
)

// UpdateKind distinguishes the two account types the subscription can
// report a change for.
type UpdateKind int32

const (
	UpdateKindClaimStatus UpdateKind = iota
	UpdateKindDistributor
)

// SubscribeRequest asks the runtime to stream account updates under a
// program ID, optionally narrowed to specific distributor accounts.
// Empty DistributorKeys means "every distributor this program owns".
type SubscribeRequest struct {
	ProgramID       string
	DistributorKeys []string // base58
}

// AccountUpdate is one account-change notification.
type AccountUpdate struct {
	Kind  UpdateKind
	Slot  uint64
	Claim *chain.ClaimRecord // set when Kind == UpdateKindClaimStatus
}

// AccountSubscription_SubscribeClient is the server-streaming half of the
// RPC, shaped like the client stream interface protoc-gen-go-grpc would
// generate for a `stream AccountUpdate` response.
type AccountSubscription_SubscribeClient interface {
	Recv() (*AccountUpdate, error)
	grpc.ClientStream
}

// AccountSubscriptionClient is the gRPC service this module depends on to
// learn about account changes without repolling.
type AccountSubscriptionClient interface {
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (AccountSubscription_SubscribeClient, error)
}

const subscribeFullMethod = "/distributor.v1.AccountSubscription/Subscribe"

type accountSubscriptionClient struct {
	cc *grpc.ClientConn
}

// NewClient wraps an established connection as an AccountSubscriptionClient.
func NewClient(cc *grpc.ClientConn) AccountSubscriptionClient {
	return &accountSubscriptionClient{cc: cc}
}

func (c *accountSubscriptionClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (AccountSubscription_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}, subscribeFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &accountSubscriptionSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type accountSubscriptionSubscribeClient struct {
	grpc.ClientStream
}

func (x *accountSubscriptionSubscribeClient) Recv() (*AccountUpdate, error) {
	m := new(AccountUpdate)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
