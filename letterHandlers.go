package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shavivco/backoffice_backend/letters"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/models/reports"
	"github.com/shavivco/backoffice_backend/workflow"
)

func requireTemplates(c *gin.Context, w *workflow.LetterWorkflow) bool {
	if w.Templates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "letter templates are not configured"})
		return false
	}
	return true
}

func letterError(c *gin.Context, err error) {
	if errors.Is(err, letters.ErrDataMissing) {
		c.JSON(http.StatusNotFound, gin.H{"error": "letter data not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func listLettersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		feeCalculationId, _ := strconv.Atoi(c.Query("fee_calculation_id"))
		latestOnly := c.Query("latest_only") == "true"
		letterList, err := models.ListLetters(c.Request.Context(), feeCalculationId, latestOnly)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, letterList)
	}
}

func getLetterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		letter, err := models.GetLetter(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, letter)
	}
}

func previewLetterHandler(w *workflow.LetterWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireTemplates(c, w) {
			return
		}
		var req workflow.BuildRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		preview, err := w.Preview(c.Request.Context(), req)
		if err != nil {
			letterError(c, err)
			return
		}
		c.JSON(http.StatusOK, preview)
	}
}

func draftLetterHandler(w *workflow.LetterWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireTemplates(c, w) {
			return
		}
		var req workflow.BuildRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		letter, reused, err := w.SaveDraft(c.Request.Context(), req)
		if err != nil {
			letterError(c, err)
			return
		}
		status := http.StatusCreated
		if reused {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"letter": letter, "reused": reused})
	}
}

func sendLetterHandler(w *workflow.LetterWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		if w.Send == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "letter send is not configured"})
			return
		}
		var input workflow.SendInput
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		letter, err := w.SendLetter(c.Request.Context(), input)
		if err != nil {
			letterError(c, err)
			return
		}
		c.JSON(http.StatusOK, letter)
	}
}

func regenerateLetterHandler(w *workflow.LetterWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireTemplates(c, w) {
			return
		}
		id, ok := pathId(c)
		if !ok {
			return
		}
		letter, reused, err := w.Regenerate(c.Request.Context(), id)
		if err != nil {
			letterError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letter": letter, "reused": reused})
	}
}

func feeSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, _ := strconv.Atoi(c.Query("year"))
		var groupId *int
		if g, err := strconv.Atoi(c.Query("group_id")); err == nil && g > 0 {
			groupId = &g
		}
		rows, err := reports.GetFeeSummaryReport(c.Request.Context(), year, groupId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func feeSummaryExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, _ := strconv.Atoi(c.Query("year"))
		var groupId *int
		if g, err := strconv.Atoi(c.Query("group_id")); err == nil && g > 0 {
			groupId = &g
		}
		f, err := reports.ExportFeeSummaryExcel(c.Request.Context(), year, groupId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=fees-%d.xlsx", year))
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
