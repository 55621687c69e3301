package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
)

type Client struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Active    *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (input *NewClient) validate(ctx context.Context, tenantId string, id int) error {
	if len(strings.TrimSpace(input.Name)) == 0 {
		return utils.NewValidationError("name is required")
	}
	if len(strings.TrimSpace(input.Email)) > 0 && !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("invalid email")
	}
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidateUnique[Client](ctx, tenantId, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	client := Client{
		TenantId: tenantId,
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    input.Email,
		Notes:    input.Notes,
		Active:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	client, err := utils.FetchModel[Client](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("client")
	}

	client.Name = input.Name
	client.Phone = input.Phone
	client.Email = input.Email
	client.Notes = input.Notes

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	client, err := utils.FetchModel[Client](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("client")
	}
	return client, nil
}

func GetClients(ctx context.Context) ([]*Client, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchAllModels[Client](ctx, tenantId)
}
