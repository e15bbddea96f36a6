package schema

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"luna/pkg/session"
)

var knowledgeBaseType = reflect.TypeOf(session.KnowledgeBase{})

func generateSchema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t != knowledgeBaseType {
				return nil
			}
			return &jsonschema.Schema{
				Type:                 "object",
				Description:          "Names mapped to descriptions, oldest first",
				AdditionalProperties: &jsonschema.Schema{Type: "string"},
			}
		},
	}
	var v T
	return r.Reflect(v)
}

var (
	TurnRequestSchema  = generateSchema[TurnRequest]()
	TurnResponseSchema = generateSchema[TurnResponse]()
	ErrorSchema        = generateSchema[ErrorResponse]()
)

// Document bundles every published schema under its endpoint role.
func Document() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"request":  TurnRequestSchema,
		"response": TurnResponseSchema,
		"error":    ErrorSchema,
	}
}
