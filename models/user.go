package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FirmId    string    `gorm:"index" json:"firm_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	Role      UserRole  `gorm:"type:enum('A','O','C');default:'C'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	FirmId   string   `json:"firm_id"`
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

/*
caches:
	User:$username
	Token:$token
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

type LoginInfo struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	FirmId   string `json:"firm_id"`
	FirmName string `json:"firm_name"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleAccountant
	}
	var email *string
	if input.Email != "" {
		email = &input.Email
	}

	db := config.GetDB()
	user := User{
		FirmId:   input.FirmId,
		Username: input.Username,
		Name:     input.Name,
		Email:    email,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and issues a session token cached in redis.
// The session middleware resolves "Token:$token" back to the username.
func Login(ctx context.Context, username, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, errors.New("invalid username or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is inactive")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisValue(config.SessionKeyPrefix+token, user.Username, 24*time.Hour); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("User:"+user.Username, &user, 24*time.Hour); err != nil {
		return nil, err
	}

	info := &LoginInfo{
		Token:  token,
		Name:   user.Name,
		Role:   string(user.Role),
		FirmId: user.FirmId,
	}
	if user.FirmId != "" {
		if firm, err := GetFirmById(ctx, user.FirmId); err == nil {
			info.FirmName = firm.Name
		}
	}
	return info, nil
}

// Logout drops the session token and the cached user object for the caller.
func Logout(ctx context.Context) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("no active session")
	}
	keys := []string{config.SessionKeyPrefix + token}
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		keys = append(keys, "User:"+username)
	}
	return config.RemoveRedisKey(keys...)
}

// GetUserByUsername reads through the redis cache.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}
