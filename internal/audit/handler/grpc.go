package handler

import (
	"context"

	auditv1 "github.com/foozio/prodmatic-sub002/api/audit/v1"
	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
	auditrepo "github.com/foozio/prodmatic-sub002/internal/audit/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
)

// Server implements AuditService. Every member of an organization can read its activity.
type Server struct {
	repo     auditrepo.Repository
	pipeline *mutation.Pipeline
}

// NewServer returns a new Audit server.
func NewServer(repo auditrepo.Repository, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, pipeline: pipeline}
}

// ListActivity returns the organization's activity, newest first, optionally narrowed to one
// entity type, entity or actor.
func (s *Server) ListActivity(ctx context.Context, req *auditv1.ListActivityRequest) (*auditv1.ListActivityResponse, error) {
	var v apperr.Validator
	v.Check(req.OrgID != "", "org_id", "is required")
	v.Check(req.EntityID == "" || req.EntityType != "", "entity_type", "is required with entity_id")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.List(ctx, domain.Filter{
		OrgID:      req.OrgID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		ActorID:    req.ActorID,
	}, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list activity", err)
	}
	entries := make([]*auditv1.ActivityEntry, len(list))
	for i, e := range list {
		entries[i] = &auditv1.ActivityEntry{
			ID:         e.ID,
			OrgID:      e.OrgID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Metadata:   e.Metadata,
			IP:         e.IP,
			CreatedAt:  e.CreatedAt,
		}
	}
	return &auditv1.ListActivityResponse{
		Entries:    entries,
		Pagination: commonv1.Next(limit, offset, len(list)),
	}, nil
}
