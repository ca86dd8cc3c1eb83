package remote

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RegisterServer exposes impl as memojournal.v1.MemoryStore on s.
func RegisterServer(s grpc.ServiceRegistrar, impl DocumentStore) {
	s.RegisterService(&serviceDesc, impl)
}

// TokenFromContext returns the access token a client attached to the call.
func TokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStore)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodList, func(ctx context.Context, srv DocumentStore, in *structpb.Struct) (any, error) {
			var req listRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			records, err := srv.List(ctx, req.UserID)
			if err != nil {
				return nil, err
			}
			return listResponse{Records: records}, nil
		}),
		unary(methodCreate, func(ctx context.Context, srv DocumentStore, in *structpb.Struct) (any, error) {
			var req createRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			rec, err := srv.Create(ctx, req.UserID, req.Payload)
			if err != nil {
				return nil, err
			}
			return createResponse{Record: rec}, nil
		}),
		unary(methodUpdate, func(ctx context.Context, srv DocumentStore, in *structpb.Struct) (any, error) {
			var req updateRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return empty{}, srv.Update(ctx, req.ID, req.Patch)
		}),
		unary(methodDelete, func(ctx context.Context, srv DocumentStore, in *structpb.Struct) (any, error) {
			var req deleteRequest
			if err := fromStruct(in, &req); err != nil {
				return nil, err
			}
			return empty{}, srv.Delete(ctx, req.ID)
		}),
		unary(methodPing, func(ctx context.Context, srv DocumentStore, _ *structpb.Struct) (any, error) {
			if err := srv.Ping(ctx); err != nil {
				return nil, err
			}
			return pingResponse{Status: "OK"}, nil
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "memojournal/v1/memory_store",
}

type handlerFunc func(ctx context.Context, srv DocumentStore, in *structpb.Struct) (any, error)

func unary(method string, fn handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}

			handle := func(ctx context.Context, req any) (any, error) {
				out, err := fn(ctx, srv.(DocumentStore), req.(*structpb.Struct))
				if err != nil {
					return nil, toStatus(err)
				}
				return toStruct(out)
			}

			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, handle)
		},
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrRejected):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrTransient):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
