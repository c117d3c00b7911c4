package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/fieldcheck/internal/core/api"
)

// fieldcheck.v1.Validator is described by hand over well-known types:
//
//	service Validator {
//	  rpc Validate(google.protobuf.BytesValue) returns (google.protobuf.Struct);
//	}
//
// The request bytes are a JSON api.ValidateRequest. Records are free-form, so
// they stay JSON end to end.

const (
	ValidatorServiceName = "fieldcheck.v1.Validator"
	ValidateMethod       = "/" + ValidatorServiceName + "/Validate"
)

// ValidatorServer is the server API for fieldcheck.v1.Validator.
type ValidatorServer interface {
	Validate(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// RegisterValidatorServer registers srv on s.
func RegisterValidatorServer(s grpc.ServiceRegistrar, srv ValidatorServer) {
	s.RegisterService(&validatorServiceDesc, srv)
}

var validatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ValidatorServiceName,
	HandlerType: (*ValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldcheck/v1/validator.proto",
}

func validateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidatorServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidatorServer).Validate(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// validatorService adapts api.ValidatorService to ValidatorServer.
type validatorService struct {
	svc *api.ValidatorService
}

func (v *validatorService) Validate(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	var req api.ValidateRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid request body: %v", err))
	}

	resp, err := v.svc.Validate(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return outcomeStruct(resp), nil
}

func outcomeStruct(resp api.ValidateResponse) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"validate": structpb.NewBoolValue(resp.Validate),
	}
	if resp.Message != "" {
		fields["message"] = structpb.NewStringValue(resp.Message)
	}
	return &structpb.Struct{Fields: fields}
}

// ValidatorClient calls fieldcheck.v1.Validator.
type ValidatorClient struct {
	cc grpc.ClientConnInterface
}

// NewValidatorClient wraps a client connection.
func NewValidatorClient(cc grpc.ClientConnInterface) *ValidatorClient {
	return &ValidatorClient{cc: cc}
}

// Validate sends req and decodes the {validate, message} reply.
func (c *ValidatorClient) Validate(ctx context.Context, req api.ValidateRequest, opts ...grpc.CallOption) (api.ValidateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return api.ValidateResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateMethod, wrapperspb.Bytes(body), out, opts...); err != nil {
		return api.ValidateResponse{}, err
	}
	return api.ValidateResponse{
		Validate: out.GetFields()["validate"].GetBoolValue(),
		Message:  out.GetFields()["message"].GetStringValue(),
	}, nil
}
