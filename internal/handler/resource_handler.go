package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/response"
)

// ResourceAPI is the service surface shared by the record resources.
type ResourceAPI[T, C, U any] interface {
	List(ctx context.Context, actor models.Actor, filter models.ListFilter) ([]T, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*T, error)
	Create(ctx context.Context, actor models.Actor, req C) (*T, error)
	Update(ctx context.Context, actor models.Actor, id string, req U) (*T, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type statusSetter[T any] interface {
	SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*T, error)
}

// ResourceHandler serves the CRUD routes of one record resource. C and U are
// the create and update payloads.
type ResourceHandler[T, C, U any] struct {
	service ResourceAPI[T, C, U]
	status  statusSetter[T]
}

// NewResourceHandler wraps a resource service. Status routes are served when
// the service can change status.
func NewResourceHandler[T, C, U any](svc ResourceAPI[T, C, U]) *ResourceHandler[T, C, U] {
	h := &ResourceHandler[T, C, U]{service: svc}
	if setter, ok := svc.(statusSetter[T]); ok {
		h.status = setter
	}
	return h
}

// Register mounts the resource routes on the group.
func (h *ResourceHandler[T, C, U]) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	if h.status != nil {
		group.PATCH("/:id/status", h.SetStatus)
	}
}

// List godoc
// @Summary List records
// @Description Managers see every row; other callers only their own
// @Tags Resources
// @Produce json
// @Param resource path string true "attendance, complaints, incidents, duties, applications, gate-logs, events, training-materials or weekly-reports"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Param owner_id query string false "Owner filter (managers)"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /{resource} [get]
func (h *ResourceHandler[T, C, U]) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get record
// @Tags Resources
// @Produce json
// @Param resource path string true "Resource"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{resource}/{id} [get]
func (h *ResourceHandler[T, C, U]) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	row, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Create godoc
// @Summary Create record
// @Tags Resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /{resource} [post]
func (h *ResourceHandler[T, C, U]) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req C
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// Update godoc
// @Summary Update record
// @Description Partial update; omitted fields are left unchanged
// @Tags Resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /{resource}/{id} [patch]
func (h *ResourceHandler[T, C, U]) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req U
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Delete godoc
// @Summary Delete record
// @Tags Resources
// @Param resource path string true "Resource"
// @Param id path string true "Record ID"
// @Success 204 {object} response.Envelope
// @Router /{resource}/{id} [delete]
func (h *ResourceHandler[T, C, U]) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetStatus godoc
// @Summary Change record status
// @Tags Resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource"
// @Param id path string true "Record ID"
// @Param payload body models.StatusUpdateRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /{resource}/{id}/status [patch]
func (h *ResourceHandler[T, C, U]) SetStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.StatusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.status.SetStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}
