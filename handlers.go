package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
)

// bindError renders binding failures in a uniform shape: validator errors get
// a field->tag map, everything else a plain message.
func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func modelError(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.Logout(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func listClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := models.ListClients(c.Request.Context())
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, clients)
	}
}

func createClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		client, err := models.CreateClient(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func getClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		client, err := models.GetClient(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func updateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		client, err := models.UpdateClient(c.Request.Context(), id, &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func deleteClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		client, err := models.DeleteClient(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleClientActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		client, err := models.ToggleActiveClient(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func listGroupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := models.ListGroups(c.Request.Context())
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

func createGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewGroup
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		group, err := models.CreateGroup(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, group)
	}
}

func getGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		group, err := models.GetGroup(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, group)
	}
}

func updateGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewGroup
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		group, err := models.UpdateGroup(c.Request.Context(), id, &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, group)
	}
}

func deleteGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		group, err := models.DeleteGroup(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, group)
	}
}

func listFeeCalculationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, _ := strconv.Atoi(c.Query("year"))
		fees, err := models.ListFeeCalculations(c.Request.Context(), year)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, fees)
	}
}

func createFeeCalculationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFeeCalculation
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		fee, err := models.CreateFeeCalculation(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, fee)
	}
}

func getFeeCalculationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		fee, err := models.GetFeeCalculation(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, fee)
	}
}

func updateFeeCalculationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewFeeCalculation
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		fee, err := models.UpdateFeeCalculation(c.Request.Context(), id, &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, fee)
	}
}

type feeStatusRequest struct {
	Status models.FeeStatus `json:"status" binding:"required"`
}

func updateFeeStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req feeStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		fee, err := models.UpdateFeeStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, fee)
	}
}

func listTicketsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status models.TicketStatus
		if s := c.Query("status"); s != "" {
			if err := status.Parse(s); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		tickets, err := models.ListTickets(c.Request.Context(), status)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, tickets)
	}
}

func createTicketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTicket
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		ticket, err := models.CreateTicket(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ticket)
	}
}

func getTicketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		ticket, err := models.GetTicket(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

func updateTicketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewTicket
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		ticket, err := models.UpdateTicket(c.Request.Context(), id, &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

type ticketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateTicketStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req ticketStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		var status models.TicketStatus
		if err := status.Parse(req.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ticket, err := models.UpdateTicketStatus(c.Request.Context(), id, status)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

func listCapitalDeclarationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taxYear, _ := strconv.Atoi(c.Query("tax_year"))
		declarations, err := models.ListCapitalDeclarations(c.Request.Context(), taxYear)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, declarations)
	}
}

func createCapitalDeclarationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCapitalDeclaration
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		declaration, err := models.CreateCapitalDeclaration(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, declaration)
	}
}

func getCapitalDeclarationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		declaration, err := models.GetCapitalDeclaration(c.Request.Context(), id)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, declaration)
	}
}

type declarationStatusRequest struct {
	Status models.DeclarationStatus `json:"status" binding:"required"`
}

func updateDeclarationStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req declarationStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		declaration, err := models.UpdateDeclarationStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusOK, declaration)
	}
}

// authorizeAdminOnly ensures the session user is a platform admin.
// The firm middleware sets the flag after resolving the user's role.
func authorizeAdminOnly(c *gin.Context) bool {
	if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func createFirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeAdminOnly(c) {
			return
		}
		var input models.NewFirm
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		firm, err := models.CreateFirm(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, firm)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeAdminOnly(c) {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		if input.FirmId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "firm_id is required"})
			return
		}
		if _, err := models.GetFirmById(c.Request.Context(), input.FirmId); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "firm not found"})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			modelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}
