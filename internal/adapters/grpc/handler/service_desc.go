package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName は ComplianceService の完全修飾名です。
const ServiceName = "compliance.v1.ComplianceService"

type unaryMethod func(*ComplianceHandler, context.Context, *structpb.Struct) (*structpb.Struct, error)

var complianceMethods = []struct {
	name string
	call unaryMethod
}{
	{"CreateEmployee", (*ComplianceHandler).CreateEmployee},
	{"GetEmployee", (*ComplianceHandler).GetEmployee},
	{"ListEmployees", (*ComplianceHandler).ListEmployees},
	{"CreateContract", (*ComplianceHandler).CreateContract},
	{"GetContract", (*ComplianceHandler).GetContract},
	{"TransitionContract", (*ComplianceHandler).TransitionContract},
	{"GetContractExpiration", (*ComplianceHandler).GetContractExpiration},
	{"GetSettlement", (*ComplianceHandler).GetSettlement},
	{"CanGeneratePayroll", (*ComplianceHandler).CanGeneratePayroll},
	{"BatchCanGeneratePayroll", (*ComplianceHandler).BatchCanGeneratePayroll},
	{"ReportAccident", (*ComplianceHandler).ReportAccident},
	{"GetAccident", (*ComplianceHandler).GetAccident},
	{"ListAccidents", (*ComplianceHandler).ListAccidents},
	{"MarkDiatSent", (*ComplianceHandler).MarkDiatSent},
	{"OriginateLoan", (*ComplianceHandler).OriginateLoan},
	{"GetLoan", (*ComplianceHandler).GetLoan},
	{"ComputeDiscountCeiling", (*ComplianceHandler).ComputeDiscountCeiling},
}

// ComplianceServiceDesc は ComplianceService の grpc.ServiceDesc です。
var ComplianceServiceDesc = buildServiceDesc()

func buildServiceDesc() grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(complianceMethods))
	for _, m := range complianceMethods {
		methods = append(methods, grpc.MethodDesc{
			MethodName: m.name,
			Handler:    unaryHandler(m.name, m.call),
		})
	}
	return grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
	}
}

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := FullMethodName(name)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(*ComplianceHandler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(h, ctx, req.(*structpb.Struct))
		})
	}
}

// RegisterComplianceService は ComplianceHandler を gRPC サーバーに登録します。
func RegisterComplianceService(s grpc.ServiceRegistrar, h *ComplianceHandler) {
	desc := ComplianceServiceDesc
	s.RegisterService(&desc, h)
}

// FullMethodName は RPC 名から gRPC のメソッドパスを返します。
func FullMethodName(name string) string {
	return "/" + ServiceName + "/" + name
}
