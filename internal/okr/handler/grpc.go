package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	okrv1 "github.com/foozio/prodmatic-sub002/api/okr/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/okr/domain"
	okrrepo "github.com/foozio/prodmatic-sub002/internal/okr/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// MemberChecker resolves a user's membership in an organization.
type MemberChecker interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
}

// Server implements OKRService.
type Server struct {
	repo     okrrepo.Repository
	products scope.Checker
	members  MemberChecker
	pipeline *mutation.Pipeline
}

func NewServer(repo okrrepo.Repository, products scope.Checker, members MemberChecker, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, products: products, members: members, pipeline: pipeline}
}

func (s *Server) CreateObjective(ctx context.Context, req *okrv1.CreateObjectiveRequest) (*okrv1.ObjectiveResponse, error) {
	var o *domain.Objective
	op := mutation.Op[okrv1.CreateObjectiveRequest, okrv1.ObjectiveResponse]{
		Action:     "create",
		EntityType: "objective",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *okrv1.CreateObjectiveRequest) error {
			o = &domain.Objective{
				ProductID:   strings.TrimSpace(in.ProductID),
				Title:       in.Title,
				Description: in.Description,
				Period:      in.Period,
				OwnerID:     strings.TrimSpace(in.OwnerID),
				Status:      domain.StatusOnTrack,
			}
			return o.Validate()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.CreateObjectiveRequest) (*okrv1.ObjectiveResponse, mutation.Result, error) {
			if o.ProductID != "" {
				if err := scope.Require(ctx, s.products, in.OrgID, o.ProductID); err != nil {
					return nil, mutation.Result{}, err
				}
			}
			now := s.pipeline.Now()
			o.ID, o.OrgID, o.CreatedAt, o.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.checkOwner(ctx, o); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.repo.CreateObjective(ctx, o); err != nil {
				return nil, mutation.Result{}, err
			}
			return &okrv1.ObjectiveResponse{Objective: objectiveToProto(o, nil)},
				result(o, o.ID, map[string]any{"title": o.Title, "period": o.Period}), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateObjective(ctx context.Context, req *okrv1.UpdateObjectiveRequest) (*okrv1.ObjectiveResponse, error) {
	op := mutation.Op[okrv1.UpdateObjectiveRequest, okrv1.ObjectiveResponse]{
		Action:     "update",
		EntityType: "objective",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *okrv1.UpdateObjectiveRequest) error { return requireID("objective_id", in.ObjectiveID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.UpdateObjectiveRequest) (*okrv1.ObjectiveResponse, mutation.Result, error) {
			o, err := s.loadObjective(ctx, in.OrgID, in.ObjectiveID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := o.Status
			setString(&o.Title, in.Title)
			setString(&o.Period, in.Period)
			setString(&o.OwnerID, in.OwnerID)
			if in.Description != nil {
				o.Description = *in.Description
			}
			if in.Status != nil {
				o.Status = domain.Status(strings.ToUpper(strings.TrimSpace(*in.Status)))
			}
			if err := o.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.checkOwner(ctx, o); err != nil {
				return nil, mutation.Result{}, err
			}
			o.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateObjective(ctx, o); err != nil {
				return nil, mutation.Result{}, err
			}
			krs, err := s.repo.ListKeyResults(ctx, o.OrgID, []string{o.ID})
			if err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"title": o.Title}
			if from != o.Status {
				meta["from"], meta["to"] = string(from), string(o.Status)
			}
			return &okrv1.ObjectiveResponse{Objective: objectiveToProto(o, krs)}, result(o, o.ID, meta), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteObjective soft-deletes the objective together with its key results.
func (s *Server) DeleteObjective(ctx context.Context, req *okrv1.ObjectiveRequest) (*commonv1.Empty, error) {
	op := mutation.Op[okrv1.ObjectiveRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "objective",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *okrv1.ObjectiveRequest) error { return requireID("objective_id", in.ObjectiveID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.ObjectiveRequest) (*commonv1.Empty, mutation.Result, error) {
			o, err := s.loadObjective(ctx, in.OrgID, in.ObjectiveID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteObjective(ctx, in.OrgID, o.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &commonv1.Empty{}, result(o, o.ID, map[string]any{"title": o.Title}), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetObjective(ctx context.Context, req *okrv1.ObjectiveRequest) (*okrv1.ObjectiveResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	o, err := s.loadObjective(ctx, req.OrgID, req.ObjectiveID)
	if err != nil {
		return nil, apperr.Storage("get objective", err)
	}
	krs, err := s.repo.ListKeyResults(ctx, req.OrgID, []string{o.ID})
	if err != nil {
		return nil, apperr.Storage("list key results", err)
	}
	return &okrv1.ObjectiveResponse{Objective: objectiveToProto(o, krs)}, nil
}

// ListObjectives returns objectives with their key results and computed progress. Key results of
// the whole page are loaded with one query.
func (s *Server) ListObjectives(ctx context.Context, req *okrv1.ListObjectivesRequest) (*okrv1.ListObjectivesResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	f := domain.Filter{ProductID: req.ProductID, Period: strings.ToUpper(strings.TrimSpace(req.Period)), OwnerID: req.OwnerID}
	list, err := s.repo.ListObjectives(ctx, req.OrgID, f, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list objectives", err)
	}
	ids := make([]string, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	krs, err := s.repo.ListKeyResults(ctx, req.OrgID, ids)
	if err != nil {
		return nil, apperr.Storage("list key results", err)
	}
	byObjective := make(map[string][]*domain.KeyResult, len(list))
	for _, k := range krs {
		byObjective[k.ObjectiveID] = append(byObjective[k.ObjectiveID], k)
	}
	out := make([]*okrv1.Objective, len(list))
	for i, o := range list {
		out[i] = objectiveToProto(o, byObjective[o.ID])
	}
	return &okrv1.ListObjectivesResponse{Objectives: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

func (s *Server) CreateKeyResult(ctx context.Context, req *okrv1.CreateKeyResultRequest) (*okrv1.KeyResultResponse, error) {
	var k *domain.KeyResult
	op := mutation.Op[okrv1.CreateKeyResultRequest, okrv1.KeyResultResponse]{
		Action:     "create",
		EntityType: "key_result",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *okrv1.CreateKeyResultRequest) error {
			k = &domain.KeyResult{ObjectiveID: in.ObjectiveID, Title: in.Title, StartValue: in.StartValue, TargetValue: in.TargetValue, CurrentValue: in.StartValue, Unit: in.Unit}
			if in.CurrentValue != nil {
				k.CurrentValue = *in.CurrentValue
			}
			var v apperr.Validator
			v.Merge(requireID("objective_id", in.ObjectiveID))
			v.Merge(k.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.CreateKeyResultRequest) (*okrv1.KeyResultResponse, mutation.Result, error) {
			o, err := s.loadObjective(ctx, in.OrgID, in.ObjectiveID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			k.ID, k.OrgID, k.CreatedAt, k.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.repo.CreateKeyResult(ctx, k); err != nil {
				return nil, mutation.Result{}, err
			}
			return s.respondKeyResult(ctx, o, k, map[string]any{"title": k.Title, "objective_id": o.ID})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateKeyResult(ctx context.Context, req *okrv1.UpdateKeyResultRequest) (*okrv1.KeyResultResponse, error) {
	op := mutation.Op[okrv1.UpdateKeyResultRequest, okrv1.KeyResultResponse]{
		Action:     "update",
		EntityType: "key_result",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *okrv1.UpdateKeyResultRequest) error { return requireID("key_result_id", in.KeyResultID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.UpdateKeyResultRequest) (*okrv1.KeyResultResponse, mutation.Result, error) {
			o, k, err := s.loadKeyResult(ctx, in.OrgID, in.KeyResultID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			setString(&k.Title, in.Title)
			setString(&k.Unit, in.Unit)
			if in.StartValue != nil {
				k.StartValue = *in.StartValue
			}
			if in.TargetValue != nil {
				k.TargetValue = *in.TargetValue
			}
			if err := s.saveKeyResult(ctx, k); err != nil {
				return nil, mutation.Result{}, err
			}
			return s.respondKeyResult(ctx, o, k, map[string]any{"title": k.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteKeyResult(ctx context.Context, req *okrv1.DeleteKeyResultRequest) (*commonv1.Empty, error) {
	op := mutation.Op[okrv1.DeleteKeyResultRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "key_result",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *okrv1.DeleteKeyResultRequest) error { return requireID("key_result_id", in.KeyResultID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.DeleteKeyResultRequest) (*commonv1.Empty, mutation.Result, error) {
			o, k, err := s.loadKeyResult(ctx, in.OrgID, in.KeyResultID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteKeyResult(ctx, in.OrgID, k.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &commonv1.Empty{}, result(o, k.ID, map[string]any{"title": k.Title, "objective_id": o.ID}), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// CheckIn records a new current value for a key result.
func (s *Server) CheckIn(ctx context.Context, req *okrv1.CheckInRequest) (*okrv1.KeyResultResponse, error) {
	op := mutation.Op[okrv1.CheckInRequest, okrv1.KeyResultResponse]{
		Action:     "check_in",
		EntityType: "key_result",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *okrv1.CheckInRequest) error {
			var v apperr.Validator
			v.Merge(requireID("key_result_id", in.KeyResultID))
			v.Check(len(in.Note) <= 2000, "note", "must be at most 2000 characters")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *okrv1.CheckInRequest) (*okrv1.KeyResultResponse, mutation.Result, error) {
			o, k, err := s.loadKeyResult(ctx, in.OrgID, in.KeyResultID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := k.CurrentValue
			k.CurrentValue = in.CurrentValue
			if err := s.saveKeyResult(ctx, k); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"from": from, "to": k.CurrentValue, "progress": k.Progress()}
			if note := strings.TrimSpace(in.Note); note != "" {
				meta["note"] = note
			}
			return s.respondKeyResult(ctx, o, k, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) checkOwner(ctx context.Context, o *domain.Objective) error {
	if o.OwnerID == "" {
		return nil
	}
	m, err := s.members.GetMembershipByUserAndOrg(ctx, o.OwnerID, o.OrgID)
	if err != nil {
		return err
	}
	var v apperr.Validator
	v.Check(m != nil, "owner_id", "must be a member of the organization")
	return v.Err()
}

func (s *Server) loadObjective(ctx context.Context, orgID, id string) (*domain.Objective, error) {
	o, err := s.repo.GetObjective(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("objective", id)
	}
	return o, nil
}

// loadKeyResult returns the key result and its live objective.
func (s *Server) loadKeyResult(ctx context.Context, orgID, id string) (*domain.Objective, *domain.KeyResult, error) {
	k, err := s.repo.GetKeyResult(ctx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if k == nil {
		return nil, nil, apperr.NotFound("key result", id)
	}
	o, err := s.repo.GetObjective(ctx, orgID, k.ObjectiveID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, apperr.NotFound("key result", id)
	}
	return o, k, nil
}

func (s *Server) saveKeyResult(ctx context.Context, k *domain.KeyResult) error {
	if err := k.Validate(); err != nil {
		return err
	}
	k.UpdatedAt = s.pipeline.Now()
	_, err := s.repo.UpdateKeyResult(ctx, k)
	return err
}

func (s *Server) respondKeyResult(ctx context.Context, o *domain.Objective, k *domain.KeyResult, meta map[string]any) (*okrv1.KeyResultResponse, mutation.Result, error) {
	krs, err := s.repo.ListKeyResults(ctx, o.OrgID, []string{o.ID})
	if err != nil {
		return nil, mutation.Result{}, err
	}
	return &okrv1.KeyResultResponse{KeyResult: keyResultToProto(k), ObjectiveProgress: domain.Progress(krs)}, result(o, k.ID, meta), nil
}

// result invalidates the objective's product views, or the organization's when it has no product.
func result(o *domain.Objective, id string, meta map[string]any) mutation.Result {
	path := revalidate.OrgPath(o.OrgID)
	if o.ProductID != "" {
		path = revalidate.ProductPath(o.OrgID, o.ProductID)
	}
	return mutation.Result{EntityIDs: []string{id}, Metadata: meta, Paths: []string{path}}
}

func requireID(field, id string) error {
	var v apperr.Validator
	v.Check(id != "", field, "is required")
	return v.Err()
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func objectiveToProto(o *domain.Objective, krs []*domain.KeyResult) *okrv1.Objective {
	out := &okrv1.Objective{
		ID:          o.ID,
		OrgID:       o.OrgID,
		ProductID:   o.ProductID,
		Title:       o.Title,
		Description: o.Description,
		Period:      o.Period,
		OwnerID:     o.OwnerID,
		Status:      string(o.Status),
		Progress:    domain.Progress(krs),
		KeyResults:  make([]*okrv1.KeyResult, len(krs)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i, k := range krs {
		out.KeyResults[i] = keyResultToProto(k)
	}
	return out
}

func keyResultToProto(k *domain.KeyResult) *okrv1.KeyResult {
	return &okrv1.KeyResult{
		ID:           k.ID,
		ObjectiveID:  k.ObjectiveID,
		Title:        k.Title,
		StartValue:   k.StartValue,
		TargetValue:  k.TargetValue,
		CurrentValue: k.CurrentValue,
		Unit:         k.Unit,
		Progress:     k.Progress(),
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
}
