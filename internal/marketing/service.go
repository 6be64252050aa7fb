package marketing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
)

type Publisher interface {
	PublishJob(job notify.DeliveryJob) error
}

// Service owns campaign CRUD and the fan-out: a send expands into one queue
// job per reachable opted-in client, so a 5k-client blast doesn't block the
// API request.
type Service struct {
	db        *gorm.DB
	publisher Publisher
}

func NewService(db *gorm.DB, publisher Publisher) *Service {
	return &Service{db: db, publisher: publisher}
}

// ======================================================
// CRUD
// ======================================================

type CampaignInput struct {
	Name        string     `json:"name" binding:"required"`
	Channel     string     `json:"channel"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body" binding:"required"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (s *Service) Create(ctx context.Context, barbershopID uint, in CampaignInput) (*models.MarketingCampaign, error) {
	channel := in.Channel
	if channel == "" {
		channel = "email"
	}
	if channel != "email" && channel != "sms" {
		return nil, httperr.ErrBusiness("invalid_channel")
	}
	if channel == "email" && in.Subject == "" {
		return nil, httperr.ErrBusiness("subject_required")
	}

	campaign := &models.MarketingCampaign{
		BarbershopID: barbershopID,
		Name:         in.Name,
		Channel:      channel,
		Subject:      in.Subject,
		Body:         in.Body,
		Status:       "draft",
		ScheduledAt:  in.ScheduledAt,
	}

	if err := s.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *Service) Update(ctx context.Context, barbershopID, id uint, in CampaignInput) (*models.MarketingCampaign, error) {
	campaign, err := s.get(ctx, barbershopID, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != "draft" {
		return nil, httperr.ErrBusiness("campaign_already_sent")
	}

	campaign.Name = in.Name
	if in.Channel != "" {
		campaign.Channel = in.Channel
	}
	campaign.Subject = in.Subject
	campaign.Body = in.Body
	campaign.ScheduledAt = in.ScheduledAt

	if err := s.db.WithContext(ctx).Save(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *Service) Delete(ctx context.Context, barbershopID, id uint) error {
	campaign, err := s.get(ctx, barbershopID, id)
	if err != nil {
		return err
	}
	if campaign.Status == "sending" {
		return httperr.ErrBusiness("campaign_in_flight")
	}
	return s.db.WithContext(ctx).Delete(campaign).Error
}

func (s *Service) List(ctx context.Context, barbershopID uint) ([]models.MarketingCampaign, error) {
	var out []models.MarketingCampaign
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ?", barbershopID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Service) get(ctx context.Context, barbershopID, id uint) (*models.MarketingCampaign, error) {
	var campaign models.MarketingCampaign
	err := s.db.WithContext(ctx).
		Where("id = ? AND barbershop_id = ?", id, barbershopID).
		First(&campaign).Error
	if err != nil {
		return nil, httperr.ErrBusiness("campaign_not_found")
	}
	return &campaign, nil
}

// ======================================================
// SEND
// ======================================================

func (s *Service) Send(ctx context.Context, barbershopID, id uint) (*models.MarketingCampaign, error) {
	campaign, err := s.get(ctx, barbershopID, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != "draft" {
		return nil, httperr.ErrBusiness("campaign_already_sent")
	}
	return campaign, s.fanOut(ctx, campaign)
}

func (s *Service) fanOut(ctx context.Context, campaign *models.MarketingCampaign) error {
	// draft -> sending with a guard so two callers can't both fan out
	res := s.db.WithContext(ctx).
		Model(&models.MarketingCampaign{}).
		Where("id = ? AND status = 'draft'", campaign.ID).
		Update("status", "sending")
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("campaign_already_sent")
	}
	campaign.Status = "sending"

	contact := "email"
	if campaign.Channel == "sms" {
		contact = "phone"
	}

	var clients []models.Client
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ? AND marketing_opt_in = ? AND "+contact+" <> ''",
			campaign.BarbershopID, true).
		Find(&clients).Error
	if err != nil {
		return err
	}

	queued := 0
	for _, client := range clients {
		job := notify.DeliveryJob{
			Kind:       "campaign",
			CampaignID: campaign.ID,
			ClientID:   client.ID,
		}
		if err := s.publisher.PublishJob(job); err != nil {
			logger.L().Error("failed to enqueue campaign job",
				zap.Uint("campaign_id", campaign.ID),
				zap.Uint("client_id", client.ID),
				zap.Error(err))
			continue
		}
		queued++
	}

	// a broker outage must not bury the campaign as sent; put it back so
	// the next attempt can fan out again
	if queued == 0 && len(clients) > 0 {
		campaign.Status = "draft"
		_ = s.db.WithContext(ctx).
			Model(&models.MarketingCampaign{}).
			Where("id = ?", campaign.ID).
			Update("status", "draft").Error
		return fmt.Errorf("campaign %d: no delivery job could be enqueued", campaign.ID)
	}

	campaign.Status = "sent"
	if err := s.db.WithContext(ctx).
		Model(campaign).
		Update("status", "sent").Error; err != nil {
		return err
	}

	logger.L().Info("campaign fanned out",
		zap.Uint("campaign_id", campaign.ID),
		zap.Int("recipients", queued))
	return nil
}

// SweepScheduled fans out campaigns whose scheduled time has arrived. Called
// by the scheduler binary on its tick.
func (s *Service) SweepScheduled(ctx context.Context) {
	var due []models.MarketingCampaign
	err := s.db.WithContext(ctx).
		Where("status = 'draft' AND scheduled_at IS NOT NULL AND scheduled_at <= ?", time.Now()).
		Find(&due).Error
	if err != nil {
		logger.L().Error("campaign sweep failed", zap.Error(err))
		return
	}

	for i := range due {
		err := s.fanOut(ctx, &due[i])
		if err == nil {
			continue
		}
		// a concurrent fan-out already claimed it
		if _, ok := httperr.IsAnyBusiness(err); ok {
			continue
		}
		logger.L().Error("scheduled campaign failed",
			zap.Uint("campaign_id", due[i].ID),
			zap.Error(err))
	}
}
