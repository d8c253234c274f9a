// Package roadmapv1 defines RoadmapService: roadmap items, releases and the changelog.
package roadmapv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.roadmap.v1.RoadmapService"

type RoadmapItem struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	IdeaID      string     `json:"idea_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Lane        string     `json:"lane"`
	Status      string     `json:"status"`
	StartsOn    *time.Time `json:"starts_on,omitempty"`
	EndsOn      *time.Time `json:"ends_on,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Lane struct {
	Lane  string         `json:"lane"`
	Items []*RoadmapItem `json:"items"`
}

type Release struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	ProductID  string     `json:"product_id"`
	Version    string     `json:"version"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	TargetOn   *time.Time `json:"target_on,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type ChangelogEntry struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	ReleaseID   string     `json:"release_id,omitempty"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Kind        string     `json:"kind"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateRoadmapItemRequest struct {
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	IdeaID      string     `json:"idea_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Lane        string     `json:"lane"`
	Status      string     `json:"status,omitempty"`
	StartsOn    *time.Time `json:"starts_on,omitempty"`
	EndsOn      *time.Time `json:"ends_on,omitempty"`
}

type UpdateRoadmapItemRequest struct {
	OrgID       string     `json:"org_id"`
	ItemID      string     `json:"item_id"`
	IdeaID      *string    `json:"idea_id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Lane        *string    `json:"lane,omitempty"`
	Status      *string    `json:"status,omitempty"`
	StartsOn    *time.Time `json:"starts_on,omitempty"`
	EndsOn      *time.Time `json:"ends_on,omitempty"`
}

type DeleteRoadmapItemRequest struct {
	OrgID  string `json:"org_id"`
	ItemID string `json:"item_id"`
}

type GetRoadmapRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type CreateReleaseRequest struct {
	OrgID     string     `json:"org_id"`
	ProductID string     `json:"product_id"`
	Version   string     `json:"version"`
	Name      string     `json:"name,omitempty"`
	TargetOn  *time.Time `json:"target_on,omitempty"`
}

// UpdateReleaseRequest cannot set RELEASED; use PublishRelease.
type UpdateReleaseRequest struct {
	OrgID     string     `json:"org_id"`
	ReleaseID string     `json:"release_id"`
	Version   *string    `json:"version,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Status    *string    `json:"status,omitempty"`
	TargetOn  *time.Time `json:"target_on,omitempty"`
}

// ReleaseRequest targets one release: delete and publish.
type ReleaseRequest struct {
	OrgID     string `json:"org_id"`
	ReleaseID string `json:"release_id"`
}

type ListReleasesRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type CreateChangelogEntryRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	ReleaseID string `json:"release_id,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Kind      string `json:"kind"`
}

type UpdateChangelogEntryRequest struct {
	OrgID     string  `json:"org_id"`
	EntryID   string  `json:"entry_id"`
	ReleaseID *string `json:"release_id,omitempty"`
	Title     *string `json:"title,omitempty"`
	Body      *string `json:"body,omitempty"`
	Kind      *string `json:"kind,omitempty"`
}

// ChangelogEntryRequest targets one entry: delete and publish.
type ChangelogEntryRequest struct {
	OrgID   string `json:"org_id"`
	EntryID string `json:"entry_id"`
}

type ListChangelogRequest struct {
	OrgID         string `json:"org_id"`
	ProductID     string `json:"product_id"`
	PublishedOnly bool   `json:"published_only,omitempty"`
}

type RoadmapItemResponse struct {
	Item *RoadmapItem `json:"item"`
}

type GetRoadmapResponse struct {
	ProductID string  `json:"product_id"`
	Lanes     []*Lane `json:"lanes"`
}

type ReleaseResponse struct {
	Release *Release `json:"release"`
}

type ListReleasesResponse struct {
	Releases []*Release `json:"releases"`
}

type ChangelogEntryResponse struct {
	Entry *ChangelogEntry `json:"entry"`
}

type ListChangelogResponse struct {
	Entries []*ChangelogEntry `json:"entries"`
}

type RoadmapServiceServer interface {
	CreateRoadmapItem(context.Context, *CreateRoadmapItemRequest) (*RoadmapItemResponse, error)
	UpdateRoadmapItem(context.Context, *UpdateRoadmapItemRequest) (*RoadmapItemResponse, error)
	DeleteRoadmapItem(context.Context, *DeleteRoadmapItemRequest) (*commonv1.Empty, error)
	GetRoadmap(context.Context, *GetRoadmapRequest) (*GetRoadmapResponse, error)

	CreateRelease(context.Context, *CreateReleaseRequest) (*ReleaseResponse, error)
	UpdateRelease(context.Context, *UpdateReleaseRequest) (*ReleaseResponse, error)
	DeleteRelease(context.Context, *ReleaseRequest) (*commonv1.Empty, error)
	PublishRelease(context.Context, *ReleaseRequest) (*ReleaseResponse, error)
	ListReleases(context.Context, *ListReleasesRequest) (*ListReleasesResponse, error)

	CreateChangelogEntry(context.Context, *CreateChangelogEntryRequest) (*ChangelogEntryResponse, error)
	UpdateChangelogEntry(context.Context, *UpdateChangelogEntryRequest) (*ChangelogEntryResponse, error)
	DeleteChangelogEntry(context.Context, *ChangelogEntryRequest) (*commonv1.Empty, error)
	PublishChangelogEntry(context.Context, *ChangelogEntryRequest) (*ChangelogEntryResponse, error)
	ListChangelog(context.Context, *ListChangelogRequest) (*ListChangelogResponse, error)
}

var RoadmapService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoadmapServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateRoadmapItem", RoadmapServiceServer.CreateRoadmapItem),
		rpc.Unary(ServiceName, "UpdateRoadmapItem", RoadmapServiceServer.UpdateRoadmapItem),
		rpc.Unary(ServiceName, "DeleteRoadmapItem", RoadmapServiceServer.DeleteRoadmapItem),
		rpc.Unary(ServiceName, "GetRoadmap", RoadmapServiceServer.GetRoadmap),
		rpc.Unary(ServiceName, "CreateRelease", RoadmapServiceServer.CreateRelease),
		rpc.Unary(ServiceName, "UpdateRelease", RoadmapServiceServer.UpdateRelease),
		rpc.Unary(ServiceName, "DeleteRelease", RoadmapServiceServer.DeleteRelease),
		rpc.Unary(ServiceName, "PublishRelease", RoadmapServiceServer.PublishRelease),
		rpc.Unary(ServiceName, "ListReleases", RoadmapServiceServer.ListReleases),
		rpc.Unary(ServiceName, "CreateChangelogEntry", RoadmapServiceServer.CreateChangelogEntry),
		rpc.Unary(ServiceName, "UpdateChangelogEntry", RoadmapServiceServer.UpdateChangelogEntry),
		rpc.Unary(ServiceName, "DeleteChangelogEntry", RoadmapServiceServer.DeleteChangelogEntry),
		rpc.Unary(ServiceName, "PublishChangelogEntry", RoadmapServiceServer.PublishChangelogEntry),
		rpc.Unary(ServiceName, "ListChangelog", RoadmapServiceServer.ListChangelog),
	},
	Metadata: "prodmatic/roadmap/v1/roadmap.proto",
}

func RegisterRoadmapServiceServer(s grpc.ServiceRegistrar, srv RoadmapServiceServer) {
	s.RegisterService(&RoadmapService_ServiceDesc, srv)
}
