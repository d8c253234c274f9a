package apperr

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus maps err to a gRPC status error. Authorization and storage failures carry
// generic messages so callers learn nothing about roles or the store.
// Validation failures carry an errdetails.BadRequest with one violation per field.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var (
		v  *ValidationError
		u  *UnauthorizedError
		ua *UnauthenticatedError
		nf *NotFoundError
		c  *ConflictError
	)
	switch {
	case errors.As(err, &v):
		st := status.New(codes.InvalidArgument, v.Error())
		br := &errdetails.BadRequest{}
		for _, f := range v.Fields {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f.Field,
				Description: f.Message,
			})
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()
	case errors.As(err, &u):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.As(err, &ua):
		return status.Error(codes.Unauthenticated, "missing or invalid authorization")
	case errors.As(err, &nf):
		return status.Error(codes.NotFound, nf.Error())
	case errors.As(err, &c):
		return status.Error(codes.AlreadyExists, c.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// FieldViolations extracts the field violations carried by a status error produced by ToStatus.
func FieldViolations(err error) []FieldError {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	var out []FieldError
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, fv := range br.GetFieldViolations() {
			out = append(out, FieldError{Field: fv.GetField(), Message: fv.GetDescription()})
		}
	}
	return out
}
