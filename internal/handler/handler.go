// Package handler holds request helpers shared by the role-specific handlers.
package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// ParseID reads a UUID path parameter.
func ParseID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation(name, "invalid "+name)
	}
	return id, nil
}

// BindJSON decodes the body into req. Field rules are left to the service
// validators so that every error carries the same shape.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewBadRequest("request body is required", err)
		}
		return apperrors.NewBadRequest("malformed request body", err)
	}
	return nil
}

// BindOptionalJSON is BindJSON for endpoints whose body may be empty.
func BindOptionalJSON(c *gin.Context, req interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return BindJSON(c, req)
}

func Pagination(c *gin.Context) model.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return model.Pagination{Page: page, Limit: limit}.Normalize()
}

// QueryID reads an optional UUID query parameter; absent yields nil.
func QueryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.NewValidation(name, "invalid "+name)
	}
	return &id, nil
}

// AppointmentFilters reads the appointment list query: status, date,
// doctor_id, patient_id and paging. The service narrows the ID filters to
// the caller's own profile where the role requires it.
func AppointmentFilters(c *gin.Context) (model.AppointmentFilters, model.Pagination, error) {
	page := Pagination(c)
	filters := model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
		Date:   c.Query("date"),
		Limit:  page.Limit,
		Offset: page.Offset(),
	}

	var err error
	if filters.DoctorID, err = QueryID(c, "doctor_id"); err != nil {
		return filters, page, err
	}
	if filters.PatientID, err = QueryID(c, "patient_id"); err != nil {
		return filters, page, err
	}
	return filters, page, nil
}
