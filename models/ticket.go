package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
)

// Ticket is a client support request tracked by the office staff.
type Ticket struct {
	ID        int          `gorm:"primary_key" json:"id"`
	FirmId    string       `gorm:"index;not null" json:"firm_id"`
	ClientId  int          `gorm:"index;not null" json:"client_id" binding:"required"`
	Client    *Client      `json:"client"`
	Subject   string       `gorm:"size:200;not null" json:"subject" binding:"required"`
	Body      string       `gorm:"type:text" json:"body"`
	Status    TicketStatus `gorm:"type:enum('open','in_progress','closed');not null;default:'open'" json:"status"`

	// Creator snapshot from the session, for the ticket audit trail.
	CreatedByUserId int    `gorm:"index" json:"created_by_user_id"`
	CreatedByName   string `gorm:"size:100" json:"created_by_name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTicket struct {
	ClientId int    `json:"client_id" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Body     string `json:"body"`
}

func CreateTicket(ctx context.Context, input *NewTicket) (*Ticket, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return nil, errors.New("client not found")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	db := config.GetDB()
	ticket := Ticket{
		FirmId:          firmId,
		ClientId:        input.ClientId,
		Subject:         input.Subject,
		Body:            input.Body,
		Status:          TicketStatusOpen,
		CreatedByUserId: userId,
		CreatedByName:   userName,
	}
	if err := db.WithContext(ctx).Create(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func UpdateTicket(ctx context.Context, id int, input *NewTicket) (*Ticket, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	ticket, err := utils.FetchModel[Ticket](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == TicketStatusClosed {
		return nil, errors.New("closed tickets cannot be edited")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&ticket).Updates(map[string]interface{}{
		"Subject": input.Subject,
		"Body":    input.Body,
	}).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func UpdateTicketStatus(ctx context.Context, id int, status TicketStatus) (*Ticket, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	ticket, err := utils.FetchModel[Ticket](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == TicketStatusClosed && status != TicketStatusClosed {
		return nil, errors.New("closed tickets cannot be reopened")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&ticket).Update("status", status).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func GetTicket(ctx context.Context, id int) (*Ticket, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Ticket](ctx, firmId, id, "Client")
}

func ListTickets(ctx context.Context, status TicketStatus) ([]*Ticket, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId).Preload("Client")
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	var tickets []*Ticket
	if err := dbCtx.Order("id DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
