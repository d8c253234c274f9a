// Package ideav1 defines IdeaService: idea intake, prioritization and voting.
package ideav1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.idea.v1.IdeaService"

type Idea struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	RICE        *RICEInput `json:"rice,omitempty"`
	ICE         *ICEInput  `json:"ice,omitempty"`
	WSJF        *WSJFInput `json:"wsjf,omitempty"`
	RICEScore   *float64   `json:"rice_score,omitempty"`
	ICEScore    *float64   `json:"ice_score,omitempty"`
	WSJFScore   *float64   `json:"wsjf_score,omitempty"`
	VoteCount   int        `json:"vote_count"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RICEInput struct {
	Reach      float64 `json:"reach"`
	Impact     float64 `json:"impact"`
	Confidence float64 `json:"confidence"`
	Effort     float64 `json:"effort"`
}

type ICEInput struct {
	Impact     float64 `json:"impact"`
	Confidence float64 `json:"confidence"`
	Ease       float64 `json:"ease"`
}

type WSJFInput struct {
	BusinessValue   float64 `json:"business_value"`
	TimeCriticality float64 `json:"time_criticality"`
	RiskReduction   float64 `json:"risk_reduction"`
	JobSize         float64 `json:"job_size"`
}

type CreateIdeaRequest struct {
	OrgID       string `json:"org_id"`
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpdateIdeaRequest struct {
	OrgID       string  `json:"org_id"`
	IdeaID      string  `json:"idea_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ChangeIdeaStatusRequest struct {
	OrgID  string `json:"org_id"`
	IdeaID string `json:"idea_id"`
	Status string `json:"status"`
}

// ScoreIdeaRequest sets the inputs of one or more scoring methods and recomputes their scores.
type ScoreIdeaRequest struct {
	OrgID  string     `json:"org_id"`
	IdeaID string     `json:"idea_id"`
	RICE   *RICEInput `json:"rice,omitempty"`
	ICE    *ICEInput  `json:"ice,omitempty"`
	WSJF   *WSJFInput `json:"wsjf,omitempty"`
}

type DeleteIdeaRequest struct {
	OrgID  string `json:"org_id"`
	IdeaID string `json:"idea_id"`
}

type VoteIdeaRequest struct {
	OrgID  string `json:"org_id"`
	IdeaID string `json:"idea_id"`
}

type GetIdeaRequest struct {
	OrgID  string `json:"org_id"`
	IdeaID string `json:"idea_id"`
}

type ListIdeasRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id,omitempty"`
	Status    string `json:"status,omitempty"`
	// SortBy is one of newest (default), rice, ice, wsjf, votes.
	SortBy     string               `json:"sort_by,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type IdeaResponse struct {
	Idea *Idea `json:"idea"`
}

type DeleteIdeaResponse struct{}

type ListIdeasResponse struct {
	Ideas      []*Idea                    `json:"ideas"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type IdeaServiceServer interface {
	CreateIdea(context.Context, *CreateIdeaRequest) (*IdeaResponse, error)
	UpdateIdea(context.Context, *UpdateIdeaRequest) (*IdeaResponse, error)
	ChangeIdeaStatus(context.Context, *ChangeIdeaStatusRequest) (*IdeaResponse, error)
	ScoreIdea(context.Context, *ScoreIdeaRequest) (*IdeaResponse, error)
	DeleteIdea(context.Context, *DeleteIdeaRequest) (*DeleteIdeaResponse, error)
	VoteIdea(context.Context, *VoteIdeaRequest) (*IdeaResponse, error)
	UnvoteIdea(context.Context, *VoteIdeaRequest) (*IdeaResponse, error)
	GetIdea(context.Context, *GetIdeaRequest) (*IdeaResponse, error)
	ListIdeas(context.Context, *ListIdeasRequest) (*ListIdeasResponse, error)
}

var IdeaService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdeaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateIdea", IdeaServiceServer.CreateIdea),
		rpc.Unary(ServiceName, "UpdateIdea", IdeaServiceServer.UpdateIdea),
		rpc.Unary(ServiceName, "ChangeIdeaStatus", IdeaServiceServer.ChangeIdeaStatus),
		rpc.Unary(ServiceName, "ScoreIdea", IdeaServiceServer.ScoreIdea),
		rpc.Unary(ServiceName, "DeleteIdea", IdeaServiceServer.DeleteIdea),
		rpc.Unary(ServiceName, "VoteIdea", IdeaServiceServer.VoteIdea),
		rpc.Unary(ServiceName, "UnvoteIdea", IdeaServiceServer.UnvoteIdea),
		rpc.Unary(ServiceName, "GetIdea", IdeaServiceServer.GetIdea),
		rpc.Unary(ServiceName, "ListIdeas", IdeaServiceServer.ListIdeas),
	},
	Metadata: "prodmatic/idea/v1/idea.proto",
}

func RegisterIdeaServiceServer(s grpc.ServiceRegistrar, srv IdeaServiceServer) {
	s.RegisterService(&IdeaService_ServiceDesc, srv)
}
