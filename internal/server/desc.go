package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "docflow.v1.DocumentService"

// Full method names, as used by clients and interceptors.
const (
	MethodProcessDocument      = "/" + ServiceName + "/ProcessDocument"
	MethodProcessDocumentAsync = "/" + ServiceName + "/ProcessDocumentAsync"
	MethodGetProcessingStatus  = "/" + ServiceName + "/GetProcessingStatus"
	MethodComplete             = "/" + ServiceName + "/Complete"
	MethodChat                 = "/" + ServiceName + "/Chat"
	MethodChatAboutDocument    = "/" + ServiceName + "/ChatAboutDocument"
	MethodExportDocument       = "/" + ServiceName + "/ExportDocument"
)

// DocumentServiceServer is the server API for docflow.v1.DocumentService.
// Every method takes and returns a google.protobuf.Struct.
type DocumentServiceServer interface {
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessDocumentAsync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProcessingStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Chat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChatAboutDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(DocumentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

var DocumentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessDocument", Handler: handler(MethodProcessDocument, DocumentServiceServer.ProcessDocument)},
		{MethodName: "ProcessDocumentAsync", Handler: handler(MethodProcessDocumentAsync, DocumentServiceServer.ProcessDocumentAsync)},
		{MethodName: "GetProcessingStatus", Handler: handler(MethodGetProcessingStatus, DocumentServiceServer.GetProcessingStatus)},
		{MethodName: "Complete", Handler: handler(MethodComplete, DocumentServiceServer.Complete)},
		{MethodName: "Chat", Handler: handler(MethodChat, DocumentServiceServer.Chat)},
		{MethodName: "ChatAboutDocument", Handler: handler(MethodChatAboutDocument, DocumentServiceServer.ChatAboutDocument)},
		{MethodName: "ExportDocument", Handler: handler(MethodExportDocument, DocumentServiceServer.ExportDocument)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docflow/v1/document_service.proto",
}

func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&DocumentServiceDesc, srv)
}

// Invoke calls method on conn with a Struct request.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if req == nil {
		req = &structpb.Struct{}
	}
	if err := conn.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
