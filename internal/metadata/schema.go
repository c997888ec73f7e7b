package metadata

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const protoPackage = "crate_health.metadata"

var (
	schemaOnce sync.Once
	schemaFile protoreflect.FileDescriptor
	schemaErr  error
)

// schema returns the file descriptor for the METADATA message family. Only
// the fields this tool reads or writes are declared; anything else in a
// METADATA file is discarded on load.
func schema() (protoreflect.FileDescriptor, error) {
	schemaOnce.Do(func() {
		schemaFile, schemaErr = protodesc.NewFile(schemaProto(), nil)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("build METADATA schema: %w", schemaErr)
		}
	})
	return schemaFile, schemaErr
}

func schemaProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("crate_health/metadata.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto2"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enumProto("LicenseType",
				"BY_EXCEPTION_ONLY", "NOTICE", "PERMISSIVE", "RECIPROCAL",
				"RESTRICTED_IF_STATICALLY_LINKED", "RESTRICTED", "UNENCUMBERED"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("MetaData"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("description", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					messageField("third_party", 13, "ThirdPartyMetaData", false),
				},
			},
			{
				Name: proto.String("ThirdPartyMetaData"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("url", 1, "URL", true),
					scalarField("version", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					enumField("license_type", 4, "LicenseType"),
					scalarField("license_note", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					messageField("last_upgrade_date", 10, "Date", false),
					scalarField("homepage", 14, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					messageField("identifier", 17, "Identifier", true),
				},
			},
			{
				Name: proto.String("URL"),
				Field: []*descriptorpb.FieldDescriptorProto{
					enumField("type", 1, "URL.Type"),
					scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
				EnumType: []*descriptorpb.EnumDescriptorProto{
					enumProtoFrom("Type", 0,
						"UNKNOWN", "HOMEPAGE", "ARCHIVE", "GIT", "PIPER", "SVN", "HG", "DARCS", "BZR", "OTHER", "LOCAL_SOURCE"),
				},
			},
			{
				Name: proto.String("Date"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("year", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalarField("month", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalarField("day", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				},
			},
			{
				Name: proto.String("Identifier"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("type", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("version", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("primary_source", 4, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				},
			},
		},
	}
}

func enumProto(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	return enumProtoFrom(name, 1, values...)
}

func enumProtoFrom(name string, first int32, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(first + int32(i)),
		})
	}
	return e
}

func scalarField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func messageField(name string, number int32, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + protoPackage + "." + typeName)
	if repeated {
		f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	return f
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	f.TypeName = proto.String("." + protoPackage + "." + typeName)
	return f
}
