package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"jars/config"
	"jars/models"

	"golang.org/x/oauth2"
)

// IdentityService 外部身份提供方的 OAuth2 授权码登录
type IdentityService struct {
	oauth        *oauth2.Config
	userInfoURL  string
	httpClient   *http.Client
	users        *UserService
	provisioning *ProvisioningService
}

// NewIdentityService 创建身份服务
func NewIdentityService(cfg config.IdentityConfig, users *UserService, provisioning *ProvisioningService) *IdentityService {
	return &IdentityService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL:  cfg.UserInfoURL,
		users:        users,
		provisioning: provisioning,
	}
}

// WithHTTPClient 替换访问身份提供方使用的 http.Client
func (s *IdentityService) WithHTTPClient(c *http.Client) *IdentityService {
	s.httpClient = c
	return s
}

// Enabled 是否已配置身份提供方
func (s *IdentityService) Enabled() bool {
	return s.oauth.ClientID != "" && s.oauth.Endpoint.TokenURL != "" && s.userInfoURL != ""
}

// AuthCodeURL 授权页地址
func (s *IdentityService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange 用授权码换取 token 并获取已验证的用户信息
func (s *IdentityService) Exchange(ctx context.Context, code string) (*IdentityUser, error) {
	if code == "" {
		return nil, NewValidationError("code", "缺少授权码")
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("换取 access token 失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求用户信息失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("身份提供方返回 %d: %s", resp.StatusCode, string(data))
	}

	var info struct {
		IdentityUser
		OpenID string `json:"open_id"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("解析用户信息失败: %w", err)
	}
	user := info.IdentityUser
	if user.Subject == "" {
		// 部分提供方用 open_id 代替 sub
		user.Subject = info.OpenID
	}
	if user.Subject == "" {
		return nil, fmt.Errorf("用户信息中缺少 sub")
	}
	return &user, nil
}

// Login 完成授权码登录：换取身份、创建或加载用户、开通罐子
func (s *IdentityService) Login(ctx context.Context, code string) (*models.User, error) {
	identity, err := s.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	user, err := s.users.EnsureUser(ctx, *identity)
	if err != nil {
		return nil, err
	}
	if err := s.provisioning.EnsureJarsProvisioned(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("开通罐子失败: %w", err)
	}
	return user, nil
}
