package integrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/config"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/payments"
)

const (
	ProviderGoogleCalendar = "google_calendar"
	ProviderGoogleGMB      = "google_mybusiness"
	ProviderStripeConnect  = "stripe_connect"
)

var googleScopes = map[string][]string{
	ProviderGoogleCalendar: {"https://www.googleapis.com/auth/calendar.events"},
	ProviderGoogleGMB:      {"https://www.googleapis.com/auth/business.manage"},
}

type Service struct {
	db      *gorm.DB
	cache   *cache.Cache
	google  config.GoogleOAuthConfig
	connect payments.ConnectProvider
}

func NewService(
	db *gorm.DB,
	c *cache.Cache,
	googleCfg config.GoogleOAuthConfig,
	connect payments.ConnectProvider,
) *Service {
	return &Service{
		db:      db,
		cache:   c,
		google:  googleCfg,
		connect: connect,
	}
}

func (s *Service) oauthConfig(provider string) (*oauth2.Config, error) {
	scopes, ok := googleScopes[provider]
	if !ok {
		return nil, httperr.ErrBusiness("unknown_provider")
	}

	return &oauth2.Config{
		ClientID:     s.google.ClientID,
		ClientSecret: s.google.ClientSecret,
		RedirectURL:  s.google.RedirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// ======================================================
// GOOGLE OAUTH FLOW
// ======================================================

// AuthURL starts the connect flow. The state token is single-use and maps
// back to the shop and provider on callback.
func (s *Service) AuthURL(ctx context.Context, barbershopID uint, provider string) (string, error) {
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	key := fmt.Sprintf("oauth:state:%s", state)
	val := fmt.Sprintf("%d:%s", barbershopID, provider)
	if err := s.cache.Set(ctx, key, val, 10*time.Minute); err != nil {
		return "", err
	}

	return conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// HandleCallback exchanges the code and stores the credential.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (*models.Integration, error) {
	key := fmt.Sprintf("oauth:state:%s", state)

	var val string
	ok, err := s.cache.Get(ctx, key, &val)
	if err != nil || !ok {
		return nil, httperr.ErrBusiness("invalid_oauth_state")
	}
	_ = s.cache.Invalidate(ctx, key)

	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return nil, httperr.ErrBusiness("invalid_oauth_state")
	}
	var barbershopID uint
	if _, err := fmt.Sscanf(parts[0], "%d", &barbershopID); err != nil {
		return nil, httperr.ErrBusiness("invalid_oauth_state")
	}
	provider := parts[1]

	conf, err := s.oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	integ := models.Integration{
		BarbershopID: barbershopID,
		Provider:     provider,
	}
	err = s.db.WithContext(ctx).
		Where("barbershop_id = ? AND provider = ?", barbershopID, provider).
		FirstOrInit(&integ).Error
	if err != nil {
		return nil, err
	}

	integ.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		integ.RefreshToken = token.RefreshToken
	}
	integ.TokenExpiry = token.Expiry
	integ.Scopes = strings.Join(conf.Scopes, " ")
	integ.Active = true
	if provider == ProviderGoogleCalendar && integ.CalendarID == "" {
		integ.CalendarID = "primary"
	}

	if err := s.db.WithContext(ctx).Save(&integ).Error; err != nil {
		return nil, err
	}

	return &integ, nil
}

// Client returns an HTTP client that refreshes the stored token on demand
// and writes the rotated token back.
func (s *Service) Client(ctx context.Context, barbershopID uint, provider string) (*oauth2.Token, *oauth2.Config, *models.Integration, error) {
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	var integ models.Integration
	if err := s.db.WithContext(ctx).
		Where("barbershop_id = ? AND provider = ? AND active = ?", barbershopID, provider, true).
		First(&integ).Error; err != nil {
		return nil, nil, nil, httperr.ErrBusiness("integration_not_connected")
	}

	stored := &oauth2.Token{
		AccessToken:  integ.AccessToken,
		RefreshToken: integ.RefreshToken,
		Expiry:       integ.TokenExpiry,
	}

	fresh, err := conf.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("token refresh: %w", err)
	}

	if fresh.AccessToken != integ.AccessToken {
		integ.AccessToken = fresh.AccessToken
		integ.TokenExpiry = fresh.Expiry
		if fresh.RefreshToken != "" {
			integ.RefreshToken = fresh.RefreshToken
		}
		_ = s.db.WithContext(ctx).Save(&integ).Error
	}

	return fresh, conf, &integ, nil
}

// ======================================================
// STRIPE CONNECT
// ======================================================

// ConnectStripe creates (or reuses) the express account and returns the
// onboarding link the owner must finish in the browser.
func (s *Service) ConnectStripe(ctx context.Context, barbershopID uint, email string) (string, error) {
	if s.connect == nil {
		return "", payments.ErrProviderUnavailable
	}

	integ := models.Integration{
		BarbershopID: barbershopID,
		Provider:     ProviderStripeConnect,
	}
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ? AND provider = ?", barbershopID, ProviderStripeConnect).
		FirstOrInit(&integ).Error
	if err != nil {
		return "", err
	}

	if integ.ExternalAccountID == "" {
		accountID, err := s.connect.CreateConnectAccount(ctx, email)
		if err != nil {
			return "", err
		}
		integ.ExternalAccountID = accountID
	}

	integ.Active = true
	if err := s.db.WithContext(ctx).Save(&integ).Error; err != nil {
		return "", err
	}

	return s.connect.OnboardingLink(ctx, integ.ExternalAccountID)
}

// ======================================================
// COMMON
// ======================================================

func (s *Service) List(ctx context.Context, barbershopID uint) ([]models.Integration, error) {
	var out []models.Integration
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ?", barbershopID).
		Order("provider ASC").
		Find(&out).Error
	return out, err
}

func (s *Service) Disconnect(ctx context.Context, barbershopID uint, provider string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("barbershop_id = ? AND provider = ?", barbershopID, provider).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("integration_not_connected")
	}
	return nil
}
