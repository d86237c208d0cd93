package grpcsvc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// descriptorPath: имя файла, под которым сервис виден через gRPC reflection.
const descriptorPath = "restbucks/v1/order_lifecycle.proto"

// orderLifecycleFile собирает дескриптор сервиса из orderLifecycleServiceDesc,
// чтобы reflection-клиенты (grpcurl, evans) могли описать методы без .proto файлов.
func orderLifecycleFile() *descriptorpb.FileDescriptorProto {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(orderLifecycleServiceDesc.Methods))
	for _, m := range orderLifecycleServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(".google.protobuf.StringValue"),
			OutputType: proto.String(".google.protobuf.Struct"),
		})
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(descriptorPath),
		Package: proto.String("restbucks.v1"),
		Dependency: []string{
			"google/protobuf/wrappers.proto",
			"google/protobuf/struct.proto",
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("OrderLifecycle"),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}
}

func init() {
	file, err := protodesc.NewFile(orderLifecycleFile(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s: %v", descriptorPath, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(file); err != nil {
		panic(fmt.Sprintf("register %s: %v", descriptorPath, err))
	}
}
