// Package experimentv1 defines ExperimentService.
package experimentv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.experiment.v1.ExperimentService"

type Experiment struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	ProductID  string     `json:"product_id"`
	IdeaID     string     `json:"idea_id,omitempty"`
	Name       string     `json:"name"`
	Hypothesis string     `json:"hypothesis"`
	Metric     string     `json:"metric"`
	Status     string     `json:"status"`
	Outcome    string     `json:"outcome,omitempty"`
	Learnings  string     `json:"learnings,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CreateExperimentRequest struct {
	OrgID      string `json:"org_id"`
	ProductID  string `json:"product_id"`
	IdeaID     string `json:"idea_id,omitempty"`
	Name       string `json:"name"`
	Hypothesis string `json:"hypothesis"`
	Metric     string `json:"metric"`
}

// UpdateExperimentRequest edits descriptive fields only; status moves through TransitionExperiment.
type UpdateExperimentRequest struct {
	OrgID        string  `json:"org_id"`
	ExperimentID string  `json:"experiment_id"`
	IdeaID       *string `json:"idea_id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Hypothesis   *string `json:"hypothesis,omitempty"`
	Metric       *string `json:"metric,omitempty"`
	Learnings    *string `json:"learnings,omitempty"`
}

type TransitionExperimentRequest struct {
	OrgID        string `json:"org_id"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome,omitempty"`
	Learnings    string `json:"learnings,omitempty"`
}

// ExperimentRequest targets one experiment: get and delete.
type ExperimentRequest struct {
	OrgID        string `json:"org_id"`
	ExperimentID string `json:"experiment_id"`
}

type ListExperimentsRequest struct {
	OrgID      string               `json:"org_id"`
	ProductID  string               `json:"product_id,omitempty"`
	Status     string               `json:"status,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type ExperimentResponse struct {
	Experiment *Experiment `json:"experiment"`
}

type ListExperimentsResponse struct {
	Experiments []*Experiment              `json:"experiments"`
	Pagination  *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type ExperimentServiceServer interface {
	CreateExperiment(context.Context, *CreateExperimentRequest) (*ExperimentResponse, error)
	UpdateExperiment(context.Context, *UpdateExperimentRequest) (*ExperimentResponse, error)
	TransitionExperiment(context.Context, *TransitionExperimentRequest) (*ExperimentResponse, error)
	DeleteExperiment(context.Context, *ExperimentRequest) (*commonv1.Empty, error)
	GetExperiment(context.Context, *ExperimentRequest) (*ExperimentResponse, error)
	ListExperiments(context.Context, *ListExperimentsRequest) (*ListExperimentsResponse, error)
}

var ExperimentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExperimentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateExperiment", ExperimentServiceServer.CreateExperiment),
		rpc.Unary(ServiceName, "UpdateExperiment", ExperimentServiceServer.UpdateExperiment),
		rpc.Unary(ServiceName, "TransitionExperiment", ExperimentServiceServer.TransitionExperiment),
		rpc.Unary(ServiceName, "DeleteExperiment", ExperimentServiceServer.DeleteExperiment),
		rpc.Unary(ServiceName, "GetExperiment", ExperimentServiceServer.GetExperiment),
		rpc.Unary(ServiceName, "ListExperiments", ExperimentServiceServer.ListExperiments),
	},
	Metadata: "prodmatic/experiment/v1/experiment.proto",
}

func RegisterExperimentServiceServer(s grpc.ServiceRegistrar, srv ExperimentServiceServer) {
	s.RegisterService(&ExperimentService_ServiceDesc, srv)
}
