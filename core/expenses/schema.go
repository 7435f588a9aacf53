package expenses

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Wire contract of the expenses service:
//
//	package proto;
//	service Expenses { rpc AddExpense(NewExpenseRequest) returns (ExpenseReply); }
//	message NewExpenseRequest { string user_id = 1; ExpenseInfo expense_info = 2; }
//	message ExpenseInfo {
//	  string name = 1; string payment_method_name = 2; string category_name = 3;
//	  string subcategory_name = 4; string currency = 5; double amount = 6; string date = 7;
//	}
//	message ExpenseReply { bool success = 1; string message = 2; ErrorCode error_code = 3; }
const (
	methodAddExpense = "/proto.Expenses/AddExpense"
	protoPackage     = "proto"
)

// ErrorCode is the typed rejection returned by AddExpense.
type ErrorCode int32

const (
	CodeUnspecified          ErrorCode = 0
	CodeInternalError        ErrorCode = 1
	CodeInvalidPayload       ErrorCode = 2
	CodeInvalidPaymentMethod ErrorCode = 3
	CodeInvalidCategory      ErrorCode = 4
	CodeInvalidSubcategory   ErrorCode = 5
	CodeInvalidDate          ErrorCode = 6
	CodeInvalidCurrency      ErrorCode = 7
)

var codeNames = []string{
	"UNSPECIFIED",
	"INTERNAL_ERROR",
	"INVALID_PAYLOAD",
	"INVALID_PAYMENT_METHOD",
	"INVALID_CATEGORY",
	"INVALID_SUBCATEGORY",
	"INVALID_DATE",
	"INVALID_CURRENCY",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("ERROR_CODE_%d", int32(c))
}

type schema struct {
	request protoreflect.MessageDescriptor
	info    protoreflect.MessageDescriptor
	reply   protoreflect.MessageDescriptor
}

var expenseSchema = mustBuildSchema()

func mustBuildSchema() schema {
	s, err := buildSchema()
	if err != nil {
		panic(fmt.Sprintf("expenses: build descriptor: %v", err))
	}
	return s
}

func buildSchema() (schema, error) {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	field := func(name string, num int32, typ *descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
		f := &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(jsonName(name)),
			Number:   proto.Int32(num),
			Label:    optional,
			Type:     typ,
		}
		if typeName != "" {
			f.TypeName = proto.String(typeName)
		}
		return f
	}

	codes := make([]*descriptorpb.EnumValueDescriptorProto, len(codeNames))
	for i, name := range codeNames {
		codes[i] = &descriptorpb.EnumValueDescriptorProto{Name: proto.String(name), Number: proto.Int32(int32(i))}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("expense.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{Name: proto.String("ErrorCode"), Value: codes},
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("ExpenseInfo"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("name", 1, str, ""),
					field("payment_method_name", 2, str, ""),
					field("category_name", 3, str, ""),
					field("subcategory_name", 4, str, ""),
					field("currency", 5, str, ""),
					field("amount", 6, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE.Enum(), ""),
					field("date", 7, str, ""),
				},
			},
			{
				Name: proto.String("NewExpenseRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("user_id", 1, str, ""),
					field("expense_info", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), ".proto.ExpenseInfo"),
				},
			},
			{
				Name: proto.String("ExpenseReply"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("success", 1, descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(), ""),
					field("message", 2, str, ""),
					field("error_code", 3, descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(), ".proto.ErrorCode"),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("Expenses"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("AddExpense"),
						InputType:  proto.String(".proto.NewExpenseRequest"),
						OutputType: proto.String(".proto.ExpenseReply"),
					},
				},
			},
		},
	}

	fd, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		return schema{}, err
	}
	msgs := fd.Messages()
	return schema{
		request: msgs.ByName("NewExpenseRequest"),
		info:    msgs.ByName("ExpenseInfo"),
		reply:   msgs.ByName("ExpenseReply"),
	}, nil
}

func jsonName(snake string) string {
	out := make([]byte, 0, len(snake))
	upper := false
	for i := 0; i < len(snake); i++ {
		c := snake[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
