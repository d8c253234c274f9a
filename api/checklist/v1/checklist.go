// Package checklistv1 defines ChecklistService.
package checklistv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.checklist.v1.ChecklistService"

type Item struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	ProductID string     `json:"product_id"`
	List      string     `json:"list"`
	Title     string     `json:"title"`
	Position  int        `json:"position"`
	Done      bool       `json:"done"`
	DoneBy    string     `json:"done_by,omitempty"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Template struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type ListProgress struct {
	List  string `json:"list"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// ApplyTemplateRequest adds every item of Template to List. List defaults to the lower-cased template name.
type ApplyTemplateRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	Template  string `json:"template"`
	List      string `json:"list,omitempty"`
}

type AddItemRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	List      string `json:"list"`
	Title     string `json:"title"`
}

type UpdateItemRequest struct {
	OrgID    string  `json:"org_id"`
	ItemID   string  `json:"item_id"`
	Title    *string `json:"title,omitempty"`
	Position *int    `json:"position,omitempty"`
}

type ToggleItemRequest struct {
	OrgID  string `json:"org_id"`
	ItemID string `json:"item_id"`
	Done   bool   `json:"done"`
}

type ItemRequest struct {
	OrgID  string `json:"org_id"`
	ItemID string `json:"item_id"`
}

type ListItemsRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	List      string `json:"list,omitempty"`
}

type ItemResponse struct {
	Item *Item `json:"item"`
}

type ItemsResponse struct {
	Items    []*Item         `json:"items"`
	Progress []*ListProgress `json:"progress,omitempty"`
}

type ListTemplatesResponse struct {
	Templates []*Template `json:"templates"`
}

type ChecklistServiceServer interface {
	ListTemplates(context.Context, *commonv1.Empty) (*ListTemplatesResponse, error)
	ApplyTemplate(context.Context, *ApplyTemplateRequest) (*ItemsResponse, error)
	AddItem(context.Context, *AddItemRequest) (*ItemResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	ToggleItem(context.Context, *ToggleItemRequest) (*ItemResponse, error)
	DeleteItem(context.Context, *ItemRequest) (*commonv1.Empty, error)
	ListItems(context.Context, *ListItemsRequest) (*ItemsResponse, error)
}

var ChecklistService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChecklistServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListTemplates", ChecklistServiceServer.ListTemplates),
		rpc.Unary(ServiceName, "ApplyTemplate", ChecklistServiceServer.ApplyTemplate),
		rpc.Unary(ServiceName, "AddItem", ChecklistServiceServer.AddItem),
		rpc.Unary(ServiceName, "UpdateItem", ChecklistServiceServer.UpdateItem),
		rpc.Unary(ServiceName, "ToggleItem", ChecklistServiceServer.ToggleItem),
		rpc.Unary(ServiceName, "DeleteItem", ChecklistServiceServer.DeleteItem),
		rpc.Unary(ServiceName, "ListItems", ChecklistServiceServer.ListItems),
	},
	Metadata: "prodmatic/checklist/v1/checklist.proto",
}

func RegisterChecklistServiceServer(s grpc.ServiceRegistrar, srv ChecklistServiceServer) {
	s.RegisterService(&ChecklistService_ServiceDesc, srv)
}
