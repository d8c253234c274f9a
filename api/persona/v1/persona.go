// Package personav1 defines PersonaService.
package personav1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.persona.v1.PersonaService"

type Persona struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Goals       []string  `json:"goals"`
	PainPoints  []string  `json:"pain_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreatePersonaRequest struct {
	OrgID       string   `json:"org_id"`
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	PainPoints  []string `json:"pain_points,omitempty"`
}

// UpdatePersonaRequest changes only the fields that are set. A non-nil list replaces the stored one.
type UpdatePersonaRequest struct {
	OrgID       string    `json:"org_id"`
	PersonaID   string    `json:"persona_id"`
	Name        *string   `json:"name,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Goals       *[]string `json:"goals,omitempty"`
	PainPoints  *[]string `json:"pain_points,omitempty"`
}

type PersonaRequest struct {
	OrgID     string `json:"org_id"`
	PersonaID string `json:"persona_id"`
}

type ListPersonasRequest struct {
	OrgID      string               `json:"org_id"`
	ProductID  string               `json:"product_id"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type PersonaResponse struct {
	Persona *Persona `json:"persona"`
}

type ListPersonasResponse struct {
	Personas   []*Persona                 `json:"personas"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type PersonaServiceServer interface {
	CreatePersona(context.Context, *CreatePersonaRequest) (*PersonaResponse, error)
	UpdatePersona(context.Context, *UpdatePersonaRequest) (*PersonaResponse, error)
	DeletePersona(context.Context, *PersonaRequest) (*commonv1.Empty, error)
	GetPersona(context.Context, *PersonaRequest) (*PersonaResponse, error)
	ListPersonas(context.Context, *ListPersonasRequest) (*ListPersonasResponse, error)
}

var PersonaService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PersonaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreatePersona", PersonaServiceServer.CreatePersona),
		rpc.Unary(ServiceName, "UpdatePersona", PersonaServiceServer.UpdatePersona),
		rpc.Unary(ServiceName, "DeletePersona", PersonaServiceServer.DeletePersona),
		rpc.Unary(ServiceName, "GetPersona", PersonaServiceServer.GetPersona),
		rpc.Unary(ServiceName, "ListPersonas", PersonaServiceServer.ListPersonas),
	},
	Metadata: "prodmatic/persona/v1/persona.proto",
}

func RegisterPersonaServiceServer(s grpc.ServiceRegistrar, srv PersonaServiceServer) {
	s.RegisterService(&PersonaService_ServiceDesc, srv)
}
