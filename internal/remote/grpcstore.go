package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const DefaultCallTimeout = 15 * time.Second

// TokenSource yields the session token attached to every call.
type TokenSource interface {
	Token() string
}

// GRPCStore is a DocumentStore over a gRPC connection.
type GRPCStore struct {
	conn        *grpc.ClientConn
	tokens      TokenSource
	callTimeout time.Duration
}

// NewGRPCStore connects lazily to target. tokens may be nil.
func NewGRPCStore(target string, tokens TokenSource, opts ...grpc.DialOption) (*GRPCStore, error) {
	s := &GRPCStore{tokens: tokens, callTimeout: DefaultCallTimeout}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// SetCallTimeout bounds every call; zero disables the bound.
func (s *GRPCStore) SetCallTimeout(d time.Duration) { s.callTimeout = d }

func (s *GRPCStore) Close() error {
	return s.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCStore) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.tokens != nil {
		if token := s.tokens.Token(); token != "" {
			ctx = withAccessToken(ctx, token)
		}
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCStore) call(ctx context.Context, method string, in, out any) error {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	req, err := toStruct(in)
	if err != nil {
		return err
	}
	resp := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return mapError(err)
	}
	if out == nil {
		return nil
	}
	return fromStruct(resp, out)
}

func (s *GRPCStore) List(ctx context.Context, userID string) ([]models.Record, error) {
	var resp listResponse
	if err := s.call(ctx, methodList, listRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (s *GRPCStore) Create(ctx context.Context, userID string, payload models.CreatePayload) (models.Record, error) {
	var resp createResponse
	if err := s.call(ctx, methodCreate, createRequest{UserID: userID, Payload: payload}, &resp); err != nil {
		return models.Record{}, err
	}
	return resp.Record, nil
}

func (s *GRPCStore) Update(ctx context.Context, id string, patch models.Patch) error {
	return s.call(ctx, methodUpdate, updateRequest{ID: id, Patch: patch}, nil)
}

func (s *GRPCStore) Delete(ctx context.Context, id string) error {
	return s.call(ctx, methodDelete, deleteRequest{ID: id}, nil)
}

func (s *GRPCStore) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := s.call(ctx, methodPing, empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return fmt.Errorf("%w: ping status %q", common.ErrTransient, resp.Status)
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %w: %s", common.ErrRejected, common.ErrUnauthorized, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %w: %s", common.ErrRejected, common.ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists, codes.OutOfRange, codes.Unimplemented:
		return fmt.Errorf("%w: %s", common.ErrRejected, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", common.ErrCancelled, st.Message())
	default:
		return fmt.Errorf("%w: rpc %s: %s", common.ErrTransient, st.Code(), st.Message())
	}
}
