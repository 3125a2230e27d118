package repository

import (
	"context"
	"time"

	"inkd/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssistantRepository stores reports, settings and the activity log.
type AssistantRepository interface {
	CreateReport(ctx context.Context, report *models.AssistantReport) error
	GetReport(ctx context.Context, id string) (*models.AssistantReport, error)
	ListReports(ctx context.Context, artistID string) ([]models.AssistantReport, error)
	SetReportStatus(ctx context.Context, id string, status models.ReportStatus) error
	CompleteReport(ctx context.Context, id string, findings models.ReportFindings) error

	// GetSettings returns stored settings, or the defaults when none are saved.
	GetSettings(ctx context.Context, artistID string) (*models.AssistantSettings, error)
	UpsertSettings(ctx context.Context, settings *models.AssistantSettings) error

	LogEvent(ctx context.Context, event *models.AssistantEvent) error
	ListEvents(ctx context.Context, artistID string, limit int) ([]models.AssistantEvent, error)
}

type assistantRepository struct {
	db *gorm.DB
}

func NewAssistantRepository(db *gorm.DB) AssistantRepository {
	return &assistantRepository{db: db}
}

func (r *assistantRepository) CreateReport(ctx context.Context, report *models.AssistantReport) error {
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	if report.Sources == nil {
		report.Sources = []models.ReportSource{}
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return mapError(err, "AssistantReport", report.ID)
	}
	return nil
}

func (r *assistantRepository) GetReport(ctx context.Context, id string) (*models.AssistantReport, error) {
	var report models.AssistantReport
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, mapError(err, "AssistantReport", id)
	}
	return &report, nil
}

// ListReports returns an artist's reports, newest first.
func (r *assistantRepository) ListReports(ctx context.Context, artistID string) ([]models.AssistantReport, error) {
	var reports []models.AssistantReport
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, mapError(err, "AssistantReport", artistID)
	}
	return reports, nil
}

func (r *assistantRepository) SetReportStatus(ctx context.Context, id string, status models.ReportStatus) error {
	return r.updateReport(ctx, id, map[string]any{"status": status})
}

func (r *assistantRepository) CompleteReport(ctx context.Context, id string, findings models.ReportFindings) error {
	// Sources go through the model so the json serializer applies.
	res := r.db.WithContext(ctx).Model(&models.AssistantReport{ID: id}).
		Select("status", "summary", "methodology", "sources", "confidence").
		Updates(&models.AssistantReport{
			Status:      models.ReportStatusCompleted,
			Summary:     &findings.Summary,
			Methodology: &findings.Methodology,
			Sources:     findings.Sources,
			Confidence:  &findings.Confidence,
		})
	if res.Error != nil {
		return mapError(res.Error, "AssistantReport", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("AssistantReport", id)
	}
	return nil
}

func (r *assistantRepository) updateReport(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.AssistantReport{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapError(res.Error, "AssistantReport", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("AssistantReport", id)
	}
	return nil
}

func (r *assistantRepository) GetSettings(ctx context.Context, artistID string) (*models.AssistantSettings, error) {
	var settings models.AssistantSettings
	err := r.db.WithContext(ctx).Where("artist_id = ?", artistID).First(&settings).Error
	if err != nil {
		mapped := mapError(err, "AssistantSettings", artistID)
		if models.IsKind(mapped, models.KindNotFound) {
			defaults := models.DefaultAssistantSettings(artistID)
			return &defaults, nil
		}
		return nil, mapped
	}
	if settings.Preferences == nil {
		settings.Preferences = map[string]any{}
	}
	return &settings, nil
}

func (r *assistantRepository) UpsertSettings(ctx context.Context, settings *models.AssistantSettings) error {
	if settings.Preferences == nil {
		settings.Preferences = map[string]any{}
	}
	settings.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "preferences", "updated_at"}),
	}).Create(settings).Error
	if err != nil {
		return mapError(err, "AssistantSettings", settings.ArtistID)
	}
	return nil
}

func (r *assistantRepository) LogEvent(ctx context.Context, event *models.AssistantEvent) error {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.Status == "" {
		event.Status = "recorded"
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return mapError(err, "AssistantEvent", event.ID)
	}
	return nil
}

func (r *assistantRepository) ListEvents(ctx context.Context, artistID string, limit int) ([]models.AssistantEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.AssistantEvent
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, mapError(err, "AssistantEvent", artistID)
	}
	return events, nil
}
