package job

import "github.com/ahmethakanbesel/price-tracker/internal/apperror"

type GetJobRequest struct {
	ID int64
}

func (r GetJobRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job id")
	}
	return nil
}

type ListJobsRequest struct {
	Kind   Kind
	Status Status
}

func (r ListJobsRequest) Validate() *apperror.AppError {
	switch r.Status {
	case "", StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return nil
	default:
		return apperror.New(apperror.BadRequest, "status must be pending, running, completed or failed")
	}
}
