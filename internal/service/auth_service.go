package service

import (
	"crypto/subtle"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/util"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthService 唯一管理员账号的登录
type AuthService struct {
	Cfg *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{Cfg: cfg}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	admin := s.Cfg.Admin
	if admin.PasswordHash == "" {
		return nil, util.ErrLoginDisabled
	}

	// 用户名不匹配时依然比较哈希，避免通过响应时间猜出用户名
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(admin.Username)) == 1
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil || !userOK {
		return nil, util.ErrInvalidCredential
	}

	token, err := util.GenerateJWT(admin.Username, util.RoleAdmin, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.Cfg.JWT.ExpireTime),
		Username:  admin.Username,
		Role:      util.RoleAdmin,
	}, nil
}

// HashPassword 生成写入 admin.password_hash 的 bcrypt 哈希
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
