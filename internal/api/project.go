package api

import (
	"net/http" // HTTP status codes

	"invest_platform/internal/domain"  // Project payloads
	"invest_platform/internal/project" // Project lifecycle
	"invest_platform/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// CreateProjectHandler creates a project (admin only)
func CreateProjectHandler(projects *project.Lifecycle, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var draft domain.ProjectDraft // Bind JSON request to struct
		if err := c.ShouldBindJSON(&draft); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p, err := projects.Create(c.Request.Context(), draft)
		if err != nil {
			respondError(c, err)
			return
		}
		cache.InvalidateProjects(c.Request.Context()) // Listings now miss the new project
		logrus.WithFields(logrus.Fields{
			"project_id": p.ID,                // New project
			"admin_id":   principal(c).UserID, // Acting admin
			"capacity":   p.Capacity.String(), // Capacity
			"end_date":   p.EndDate,           // Derived end date
		}).Info("Project created")
		c.JSON(http.StatusCreated, gin.H{"message": "Project created", "project": p})
	}
}

// UpdateProjectHandler applies a partial update to a project (admin only)
func UpdateProjectHandler(projects *project.Lifecycle, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch domain.ProjectPatch // Bind JSON request to struct
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p, err := projects.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondError(c, err)
			return
		}
		cache.InvalidateProjects(c.Request.Context(), p.ID) // Drop stale copies
		logrus.WithFields(logrus.Fields{
			"project_id": p.ID,                // Updated project
			"admin_id":   principal(c).UserID, // Acting admin
			"status":     p.Status,            // Status after update
		}).Info("Project updated")
		c.JSON(http.StatusOK, gin.H{"message": "Project updated", "project": p})
	}
}

// DeleteProjectHandler soft-deletes a project (admin only)
func DeleteProjectHandler(projects *project.Lifecycle, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := projects.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		cache.InvalidateProjects(c.Request.Context(), p.ID) // Deleted projects must disappear from reads
		logrus.WithFields(logrus.Fields{
			"project_id": p.ID,                // Deleted project
			"admin_id":   principal(c).UserID, // Acting admin
		}).Info("Project deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Project deleted", "project": p})
	}
}

// GetProjectHandler returns one project
func GetProjectHandler(projects *project.Lifecycle, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		// Generation is read before the store so a concurrent commit retires this key
		cacheKey := cache.Key(ctx, utils.ProjectScope(id), utils.ProjectCacheKey(id))
		var cached domain.Project
		// If cached data found, return it
		if cache.Get(ctx, cacheKey, &cached) {
			c.JSON(http.StatusOK, gin.H{"project": cached, "cached": true})
			return
		}
		p, err := projects.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		cache.Set(ctx, cacheKey, p) // Cache the response for future requests
		c.JSON(http.StatusOK, gin.H{"project": p, "cached": false})
	}
}

// ListProjectsHandler returns projects, optionally filtered by status
func ListProjectsHandler(projects *project.Lifecycle, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := c.Query("status")
		cacheKey := cache.Key(ctx, utils.ProjectListScope, utils.ProjectListCacheKey(status))
		var cached []domain.Project
		// If cached data found, return it
		if cache.Get(ctx, cacheKey, &cached) {
			c.JSON(http.StatusOK, gin.H{"projects": cached, "cached": true})
			return
		}
		list, err := projects.List(ctx, status)
		if err != nil {
			respondError(c, err)
			return
		}
		if list == nil {
			list = []domain.Project{} // Render an empty list rather than null
		}
		cache.Set(ctx, cacheKey, list) // Cache the response for future requests
		c.JSON(http.StatusOK, gin.H{"projects": list, "cached": false})
	}
}
