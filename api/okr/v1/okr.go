// Package okrv1 defines OKRService: objectives, key results and check-ins.
package okrv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.okr.v1.OKRService"

type KeyResult struct {
	ID           string    `json:"id"`
	ObjectiveID  string    `json:"objective_id"`
	Title        string    `json:"title"`
	StartValue   float64   `json:"start_value"`
	TargetValue  float64   `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Unit         string    `json:"unit,omitempty"`
	Progress     float64   `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Objective struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"org_id"`
	ProductID   string       `json:"product_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Period      string       `json:"period"`
	OwnerID     string       `json:"owner_id,omitempty"`
	Status      string       `json:"status"`
	Progress    float64      `json:"progress"`
	KeyResults  []*KeyResult `json:"key_results"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type CreateObjectiveRequest struct {
	OrgID       string `json:"org_id"`
	ProductID   string `json:"product_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Period      string `json:"period"`
	OwnerID     string `json:"owner_id,omitempty"`
}

type UpdateObjectiveRequest struct {
	OrgID       string  `json:"org_id"`
	ObjectiveID string  `json:"objective_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Period      *string `json:"period,omitempty"`
	OwnerID     *string `json:"owner_id,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ObjectiveRequest targets one objective: get and delete.
type ObjectiveRequest struct {
	OrgID       string `json:"org_id"`
	ObjectiveID string `json:"objective_id"`
}

type ListObjectivesRequest struct {
	OrgID      string               `json:"org_id"`
	ProductID  string               `json:"product_id,omitempty"`
	Period     string               `json:"period,omitempty"`
	OwnerID    string               `json:"owner_id,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type CreateKeyResultRequest struct {
	OrgID        string   `json:"org_id"`
	ObjectiveID  string   `json:"objective_id"`
	Title        string   `json:"title"`
	StartValue   float64  `json:"start_value"`
	TargetValue  float64  `json:"target_value"`
	CurrentValue *float64 `json:"current_value,omitempty"`
	Unit         string   `json:"unit,omitempty"`
}

type UpdateKeyResultRequest struct {
	OrgID       string   `json:"org_id"`
	KeyResultID string   `json:"key_result_id"`
	Title       *string  `json:"title,omitempty"`
	StartValue  *float64 `json:"start_value,omitempty"`
	TargetValue *float64 `json:"target_value,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
}

type DeleteKeyResultRequest struct {
	OrgID       string `json:"org_id"`
	KeyResultID string `json:"key_result_id"`
}

type CheckInRequest struct {
	OrgID        string  `json:"org_id"`
	KeyResultID  string  `json:"key_result_id"`
	CurrentValue float64 `json:"current_value"`
	Note         string  `json:"note,omitempty"`
}

type ObjectiveResponse struct {
	Objective *Objective `json:"objective"`
}

type ListObjectivesResponse struct {
	Objectives []*Objective               `json:"objectives"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type KeyResultResponse struct {
	KeyResult *KeyResult `json:"key_result"`
	// ObjectiveProgress is the parent objective's progress after the change.
	ObjectiveProgress float64 `json:"objective_progress"`
}

type OKRServiceServer interface {
	CreateObjective(context.Context, *CreateObjectiveRequest) (*ObjectiveResponse, error)
	UpdateObjective(context.Context, *UpdateObjectiveRequest) (*ObjectiveResponse, error)
	DeleteObjective(context.Context, *ObjectiveRequest) (*commonv1.Empty, error)
	GetObjective(context.Context, *ObjectiveRequest) (*ObjectiveResponse, error)
	ListObjectives(context.Context, *ListObjectivesRequest) (*ListObjectivesResponse, error)
	CreateKeyResult(context.Context, *CreateKeyResultRequest) (*KeyResultResponse, error)
	UpdateKeyResult(context.Context, *UpdateKeyResultRequest) (*KeyResultResponse, error)
	DeleteKeyResult(context.Context, *DeleteKeyResultRequest) (*commonv1.Empty, error)
	CheckIn(context.Context, *CheckInRequest) (*KeyResultResponse, error)
}

var OKRService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OKRServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateObjective", OKRServiceServer.CreateObjective),
		rpc.Unary(ServiceName, "UpdateObjective", OKRServiceServer.UpdateObjective),
		rpc.Unary(ServiceName, "DeleteObjective", OKRServiceServer.DeleteObjective),
		rpc.Unary(ServiceName, "GetObjective", OKRServiceServer.GetObjective),
		rpc.Unary(ServiceName, "ListObjectives", OKRServiceServer.ListObjectives),
		rpc.Unary(ServiceName, "CreateKeyResult", OKRServiceServer.CreateKeyResult),
		rpc.Unary(ServiceName, "UpdateKeyResult", OKRServiceServer.UpdateKeyResult),
		rpc.Unary(ServiceName, "DeleteKeyResult", OKRServiceServer.DeleteKeyResult),
		rpc.Unary(ServiceName, "CheckIn", OKRServiceServer.CheckIn),
	},
	Metadata: "prodmatic/okr/v1/okr.proto",
}

func RegisterOKRServiceServer(s grpc.ServiceRegistrar, srv OKRServiceServer) {
	s.RegisterService(&OKRService_ServiceDesc, srv)
}
