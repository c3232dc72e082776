package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/compress"
	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

const (
	formFieldFile = "file"
	formFieldPath = "path"
)

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

type listResponse struct {
	Items []model.DocumentMetadata `json:"items"`
	Total int                      `json:"total"`
}

func newListResponse(docs []model.DocumentMetadata) listResponse {
	if docs == nil {
		docs = []model.DocumentMetadata{}
	}
	return listResponse{Items: docs, Total: len(docs)}
}

// UploadDocument accepts a multipart upload. Besides "file" and "path", every
// form field is stored as a searchable attribute.
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   mpfd
// @Produce  json
// @Param    file formData file   true "Document content"
// @Param    path formData string true "Logical folder"
// @Success  201 {object} uploadResponse
// @Failure  400 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /api/v1/documents/upload [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(formFieldFile)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		path := c.FormValue(formFieldPath)
		if path == "" {
			return writeError(c, fiber.StatusBadRequest, "PATH_REQUIRED", "path is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		attrs := make(map[string]string)
		if form, err := c.MultipartForm(); err == nil {
			for k, vs := range form.Value {
				if k == formFieldPath || len(vs) == 0 {
					continue
				}
				attrs[k] = vs[0]
			}
		}

		doc, err := svc.Upload(c.UserContext(), service.UploadInput{
			Path:        path,
			FileName:    fh.Filename,
			ContentType: ct,
			Content:     f,
			Attributes:  attrs,
			OwnerID:     middleware.RequesterFrom(c).ID,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			DocumentID: doc.DocumentID,
			Message:    "Document uploaded successfully",
		})
	}
}

// DownloadDocument sends the decrypted document back as an attachment, gzipped
// when the client accepts it and the payload is worth compressing.
//
// @Summary  Download a document
// @Tags     documents
// @Produce  octet-stream
// @Param    id path string true "Document ID"
// @Success  200 {file} file
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id} [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		who := middleware.RequesterFrom(c)
		doc, err := svc.Retrieve(c.UserContext(), id, who.ID, who.IsAdmin)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(doc.Metadata.FileName)
		c.Set(fiber.HeaderContentType, doc.Metadata.ContentType)
		c.Vary(fiber.HeaderAcceptEncoding)

		body := doc.Content
		if strings.Contains(c.Get(fiber.HeaderAcceptEncoding), "gzip") {
			res, err := compress.Compress(body, compress.Maximum)
			if err == nil && res.Compressed {
				c.Set(fiber.HeaderContentEncoding, "gzip")
				body = res.Data
			}
		}
		return c.Status(fiber.StatusOK).Send(body)
	}
}

// GetDocumentMetadata returns a document's metadata record.
//
// @Summary  Document metadata
// @Tags     documents
// @Produce  json
// @Param    id path string true "Document ID"
// @Success  200 {object} model.DocumentMetadata
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id}/metadata [get]
func GetDocumentMetadata(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		who := middleware.RequesterFrom(c)
		doc, err := svc.GetMetadata(c.UserContext(), id, who.ID, who.IsAdmin)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// SearchDocuments treats every query parameter as an attribute criterion.
//
// @Summary  Search by attributes
// @Tags     documents
// @Produce  json
// @Success  200 {object} listResponse
// @Router   /api/v1/documents/search [get]
func SearchDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who := middleware.RequesterFrom(c)
		docs, err := svc.Search(c.UserContext(), c.Queries(), who.ID, who.IsAdmin)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newListResponse(docs))
	}
}

// FindByPath lists documents filed under a path prefix.
//
// @Summary  Search by path prefix
// @Tags     documents
// @Produce  json
// @Param    prefix query string true "Path prefix"
// @Success  200 {object} listResponse
// @Router   /api/v1/documents/path [get]
func FindByPath(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prefix := c.Query("prefix")
		if prefix == "" {
			return writeError(c, fiber.StatusBadRequest, "PREFIX_REQUIRED", "prefix is required")
		}
		who := middleware.RequesterFrom(c)
		docs, err := svc.FindByPath(c.UserContext(), prefix, who.ID, who.IsAdmin)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newListResponse(docs))
	}
}

// ListMyDocuments lists the caller's own documents.
//
// @Summary  Documents owned by the caller
// @Tags     documents
// @Produce  json
// @Success  200 {object} listResponse
// @Router   /api/v1/documents/mine [get]
func ListMyDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who := middleware.RequesterFrom(c)
		docs, err := svc.FindByOwner(c.UserContext(), who.ID, who.ID, who.IsAdmin)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newListResponse(docs))
	}
}

// DeleteDocument removes a document.
//
// @Summary  Delete a document
// @Tags     documents
// @Param    id path string true "Document ID"
// @Success  204
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		who := middleware.RequesterFrom(c)
		if err := svc.Delete(c.UserContext(), id, who.ID, who.IsAdmin); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
