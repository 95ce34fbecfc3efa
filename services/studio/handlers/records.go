// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
)

// HandleListRecords returns the generation history for one strategy
// instance, newest first. The limit query parameter defaults to
// datatypes.DefaultHistoryLimit and is capped at
// datatypes.MaxHistoryLimit so a curious client cannot page the whole
// store into one response.
func HandleListRecords(store history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		instanceID := c.Param("instance_id")
		if err := validation.ValidateIdentifier(instanceID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
			return
		}

		limit := datatypes.DefaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}
		if limit > datatypes.MaxHistoryLimit {
			limit = datatypes.MaxHistoryLimit
		}

		records, err := store.ListByInstance(c.Request.Context(), instanceID, limit)
		if err != nil {
			slog.Error("failed to list generation records", "instance_id", instanceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"instance_id": instanceID,
			"records":     records,
			"count":       len(records),
		})
	}
}

// HandleGetRecord returns one generation record by id, including the
// full generated source and validation findings.
func HandleGetRecord(store history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordID := c.Param("record_id")
		if err := validation.ValidateIdentifier(recordID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
			return
		}

		record, err := store.Get(c.Request.Context(), recordID)
		if err != nil {
			if errors.Is(err, history.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			slog.Error("failed to load generation record", "record_id", recordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
