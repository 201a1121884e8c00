package catalog

import (
	"strings"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
)

const maxNameLength = 255

func validateName(name, field string) *apperror.AppError {
	n := strings.TrimSpace(name)
	if n == "" {
		return apperror.New(apperror.BadRequest, field+" is required")
	}
	if len(n) > maxNameLength {
		return apperror.New(apperror.BadRequest, field+" must be at most 255 characters")
	}
	return nil
}

func validateID(id int64, what string) *apperror.AppError {
	if id <= 0 {
		return apperror.New(apperror.BadRequest, "invalid "+what+" id")
	}
	return nil
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (r CreateCategoryRequest) Validate() *apperror.AppError {
	return validateName(r.Name, "name")
}

type RenameCategoryRequest struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}

func (r RenameCategoryRequest) Validate() *apperror.AppError {
	if err := validateID(r.ID, "category"); err != nil {
		return err
	}
	return validateName(r.Name, "name")
}

type CreateProductRequest struct {
	Name       string `json:"name"`
	CategoryID *int64 `json:"categoryId,omitempty"`
}

func (r CreateProductRequest) Validate() *apperror.AppError {
	if err := validateName(r.Name, "name"); err != nil {
		return err
	}
	if r.CategoryID != nil {
		return validateID(*r.CategoryID, "category")
	}
	return nil
}

type CreateMarketplaceRequest struct {
	Name string `json:"name"`
}

func (r CreateMarketplaceRequest) Validate() *apperror.AppError {
	return validateName(r.Name, "name")
}
