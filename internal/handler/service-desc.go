package handler

import (
	"context"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/burakmert236/courtside/common/errors"
)

// UserIdHeader carries the caller's stable user id.
const UserIdHeader = "x-user-id"

type structMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryMethod builds the descriptor protoc would have generated for a
// Struct-in, Struct-out unary method.
func unaryMethod(service string, name string, pick func(srv interface{}) structMethod) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			method := pick(srv)
			if interceptor == nil {
				return method(ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return method(ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func userIdFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(UserIdHeader)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func requireUser(ctx context.Context) (string, error) {
	userId := userIdFromContext(ctx)
	if userId == "" {
		return "", apperrors.ToGRPCError(apperrors.New(apperrors.CodeUnauthorized, "missing "+UserIdHeader+" metadata"))
	}
	return userId, nil
}

func invalidArgument(message string) error {
	return apperrors.ToGRPCError(apperrors.New(apperrors.CodeInvalidInput, message))
}

func stringArg(req *structpb.Struct, key string) string {
	return strings.TrimSpace(rawStringArg(req, key))
}

// rawStringArg keeps free text exactly as sent.
func rawStringArg(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func requireString(req *structpb.Struct, key string) (string, error) {
	value := stringArg(req, key)
	if value == "" {
		return "", invalidArgument(key + " is required")
	}
	return value, nil
}

func requireInt(req *structpb.Struct, key string) (int, error) {
	value, ok := req.GetFields()[key]
	if !ok {
		return 0, invalidArgument(key + " is required")
	}

	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || number.NumberValue != math.Trunc(number.NumberValue) {
		return 0, invalidArgument(key + " must be an integer")
	}
	return int(number.NumberValue), nil
}

func boolArg(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

func stringListArg(req *structpb.Struct, key string) []string {
	values := req.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

func timeArg(req *structpb.Struct, key string) (time.Time, error) {
	raw, err := requireString(req, key)
	if err != nil {
		return time.Time{}, err
	}

	t, parseErr := time.Parse(time.RFC3339, raw)
	if parseErr != nil {
		return time.Time{}, invalidArgument(key + " must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}

// structpb only understands []interface{} lists.
func stringList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, apperrors.ToGRPCError(apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build response"))
	}
	return resp, nil
}
