package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinicsched/backend/internal/store"
	"clinicsched/backend/internal/validation"
)

const errorDomain = "clinicsched"

// toStatus maps service errors to gRPC statuses and logs them at the level they deserve.
// Rejections carry their reason as an ErrorInfo detail.
func toStatus(log *slog.Logger, err error) error {
	var rej *validation.Rejection
	switch {
	case errors.As(err, &rej):
		code := codes.InvalidArgument
		if rej.Reason.IsConflict() {
			code = codes.FailedPrecondition
			log.Info("rejected", slog.String("reason", string(rej.Reason)), slog.String("message", rej.Error()))
		} else {
			log.Warn("invalid request", slog.String("reason", string(rej.Reason)), slog.String("field", rej.Field), slog.String("message", rej.Error()))
		}
		return rejectionStatus(code, rej)
	case errors.Is(err, store.ErrDuplicateNumber):
		log.Info("duplicate appointment number")
		return status.Error(codes.AlreadyExists, "An appointment with that number already exists.")
	case errors.Is(err, store.ErrDuplicateRoom):
		log.Info("duplicate room")
		return status.Error(codes.AlreadyExists, "A location with that room number already exists.")
	case errors.Is(err, store.ErrConflict):
		log.Info("write conflict", slog.Any("err", err))
		return status.Error(codes.Aborted, "That slot was just taken by another booking. Pick a different slot.")
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found")
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("deadline exceeded", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	log.Error("request failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}

func rejectionStatus(code codes.Code, rej *validation.Rejection) error {
	st := status.New(code, rej.Error())
	info := &errdetails.ErrorInfo{
		Reason:   string(rej.Reason),
		Domain:   errorDomain,
		Metadata: map[string]string{},
	}
	if rej.Field != "" {
		info.Metadata["field"] = rej.Field
	}
	if rej.Interval != nil {
		info.Metadata["conflict_schedule_id"] = rej.Interval.ID.String()
	}
	if rej.Appointment != nil {
		info.Metadata["conflict_appointment_id"] = rej.Appointment.ID.String()
	}
	withDetails, err := st.WithDetails(info)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
