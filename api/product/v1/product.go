// Package productv1 defines ProductService.
package productv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.product.v1.ProductService"

type Product struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	TeamID      string    `json:"team_id,omitempty"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	Stage       string    `json:"stage"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductStats struct {
	ProductID          string           `json:"product_id"`
	IdeasByStatus      map[string]int64 `json:"ideas_by_status"`
	TasksByStatus      map[string]int64 `json:"tasks_by_status"`
	AverageOKRProgress float64          `json:"average_okr_progress"`
	RunningExperiments int64            `json:"running_experiments"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

type CreateProductRequest struct {
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Stage       string `json:"stage,omitempty"`
	TeamID      string `json:"team_id,omitempty"`
}

type UpdateProductRequest struct {
	OrgID       string  `json:"org_id"`
	ProductID   string  `json:"product_id"`
	Name        *string `json:"name,omitempty"`
	Key         *string `json:"key,omitempty"`
	Description *string `json:"description,omitempty"`
	Stage       *string `json:"stage,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
}

type DeleteProductRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type GetProductRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type ListProductsRequest struct {
	OrgID      string               `json:"org_id"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type GetProductStatsRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type ProductResponse struct {
	Product *Product `json:"product"`
}

type DeleteProductResponse struct{}

type ListProductsResponse struct {
	Products   []*Product                 `json:"products"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type GetProductStatsResponse struct {
	Stats *ProductStats `json:"stats"`
}

type ProductServiceServer interface {
	CreateProduct(context.Context, *CreateProductRequest) (*ProductResponse, error)
	UpdateProduct(context.Context, *UpdateProductRequest) (*ProductResponse, error)
	DeleteProduct(context.Context, *DeleteProductRequest) (*DeleteProductResponse, error)
	GetProduct(context.Context, *GetProductRequest) (*ProductResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	GetProductStats(context.Context, *GetProductStatsRequest) (*GetProductStatsResponse, error)
}

var ProductService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateProduct", ProductServiceServer.CreateProduct),
		rpc.Unary(ServiceName, "UpdateProduct", ProductServiceServer.UpdateProduct),
		rpc.Unary(ServiceName, "DeleteProduct", ProductServiceServer.DeleteProduct),
		rpc.Unary(ServiceName, "GetProduct", ProductServiceServer.GetProduct),
		rpc.Unary(ServiceName, "ListProducts", ProductServiceServer.ListProducts),
		rpc.Unary(ServiceName, "GetProductStats", ProductServiceServer.GetProductStats),
	},
	Metadata: "prodmatic/product/v1/product.proto",
}

func RegisterProductServiceServer(s grpc.ServiceRegistrar, srv ProductServiceServer) {
	s.RegisterService(&ProductService_ServiceDesc, srv)
}
