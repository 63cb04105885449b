package server

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sketchartist07/tempshare/internal/session"
)

// tokenParam validates the :token route parameter syntactically before any
// registry or filesystem lookup.
func tokenParam(c *gin.Context) (string, bool) {
	token := c.Param("token")
	if _, err := uuid.Parse(token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return "", false
	}
	return token, true
}

// statusFromErr maps the session error taxonomy to HTTP statuses.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownToken):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrExpired):
		return http.StatusGone
	case errors.Is(err, session.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func abortWithErr(c *gin.Context, err error) {
	status := statusFromErr(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Never leak OS-level details to clients.
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func handleCreateSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := sessions.Create(c.Request.Context())
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token})
	}
}

func handleUpload(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenParam(c)
		if !ok {
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad multipart body"})
			return
		}

		headers := form.File["files"]
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files in request"})
			return
		}

		incoming := make([]session.IncomingFile, 0, len(headers))
		opened := make([]multipart.File, 0, len(headers))
		defer func() {
			for _, f := range opened {
				_ = f.Close()
			}
		}()

		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad multipart body"})
				return
			}
			opened = append(opened, f)
			incoming = append(incoming, session.IncomingFile{Name: h.Filename, Content: f})
		}

		accepted, err := sessions.SaveUpload(c.Request.Context(), token, incoming)
		if err != nil {
			abortWithErr(c, err)
			return
		}

		log.Info().Str("token", token).Int("files", len(accepted)).Msg("upload complete")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleListFiles(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenParam(c)
		if !ok {
			return
		}

		files, err := sessions.List(c.Request.Context(), token)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

func handleRecover(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenParam(c)
		if !ok {
			return
		}

		files, err := sessions.Recover(c.Request.Context(), token)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

func handleDownload(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenParam(c)
		if !ok {
			return
		}
		name := c.Param("name")

		reader, size, err := sessions.Open(c.Request.Context(), token, name)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		defer reader.Close()

		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c.DataFromReader(http.StatusOK, size, contentType, reader, map[string]string{
			"Content-Disposition": `attachment; filename="` + name + `"`,
		})
	}
}
